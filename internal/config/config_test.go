package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTempConfig(t *testing.T, contents string) string {
	t.Helper()
	tmp := t.TempDir()
	path := filepath.Join(tmp, "cfg.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}
	return path
}

func requireErrEq(t *testing.T, err error, want string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error %q, got nil", want)
	}
	if err.Error() != want {
		t.Fatalf("error=%q want %q", err.Error(), want)
	}
}

func TestDefault_IsValidSimulation(t *testing.T) {
	cfg := Default()
	if err := cfg.normalize(); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if !cfg.Sim.Enable {
		t.Fatalf("default should simulate")
	}
	if cfg.Log.Level != "info" {
		t.Fatalf("level=%q want info", cfg.Log.Level)
	}
}

func TestLoad_EmptyFileUsesDefaults(t *testing.T) {
	path := writeTempConfig(t, "{}\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if !cfg.Sim.Enable || cfg.Sim.TurnRateDegPerS != 45 || len(cfg.LEDs.Lines) != 8 {
		t.Fatalf("cfg=%+v", cfg)
	}
}

func TestLoad_HardwareDefaultsApplied(t *testing.T) {
	path := writeTempConfig(t, `
sim:
  enable: false
leds:
  chip: gpiochip4
  lines: [1, 2, 3, 4, 5, 6, 7, 8]
stepper:
  direction_line: 20
  enable_line: 21
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Compass.Backend != "sysfs" || cfg.Compass.Bus != "/dev/i2c-1" || cfg.Compass.Addr != 0x1E {
		t.Fatalf("compass=%+v", cfg.Compass)
	}
	if cfg.Stepper.DirectionChip != "gpiochip4" {
		t.Fatalf("direction_chip=%q want leds chip", cfg.Stepper.DirectionChip)
	}
	if cfg.LEDs.Lines[0] != 1 || cfg.LEDs.Lines[7] != 8 {
		t.Fatalf("lines=%v", cfg.LEDs.Lines)
	}
}

func TestLoad_HardwareDefaultsDoNotCollide(t *testing.T) {
	cfg, err := Load(writeTempConfig(t, "sim: {enable: false}\n"))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	for _, l := range cfg.LEDs.Lines {
		if l == cfg.Stepper.DirectionLine {
			t.Fatalf("direction line %d shared with leds=%v", l, cfg.LEDs.Lines)
		}
	}
}

func TestLoad_StepperLinesOnOtherChip(t *testing.T) {
	path := writeTempConfig(t, `
sim: {enable: false}
stepper: {direction_chip: gpiochip1, direction_line: 9, enable_line: 10}
`)
	if _, err := Load(path); err != nil {
		t.Fatalf("Load() error: %v", err)
	}
}

func TestLoad_PeriphBusDefault(t *testing.T) {
	path := writeTempConfig(t, "sim: {enable: false}\ncompass: {backend: PERIPH}\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Compass.Backend != "periph" || cfg.Compass.Bus != "1" {
		t.Fatalf("compass=%+v", cfg.Compass)
	}
}

func TestLoad_Validation(t *testing.T) {
	cases := []struct {
		name string
		yaml string
		want string
	}{
		{"log level", "log: {level: chatty}\n", "log.level must be one of debug, info, warn, error"},
		{"sim rate", "sim: {turn_rate_deg_per_sec: -1}\n", "sim.turn_rate_deg_per_sec must be > 0"},
		{"sim omit", "sim: {omit: [lights]}\n", `sim.omit: unknown capability "lights"`},
		{"leds chip", "sim: {enable: false}\nleds: {chip: ''}\n", "leds.chip is required"},
		{"leds lines", "sim: {enable: false}\nleds: {lines: [1, 2, 3]}\n", "leds.lines must list 8 offsets"},
		{"backend", "sim: {enable: false}\ncompass: {backend: spi}\n", "compass.backend must be sysfs or periph"},
		{"addr", "sim: {enable: false}\ncompass: {addr: 0x80}\n", "compass.addr must be a 7-bit address"},
		{"direction line", "sim: {enable: false}\nstepper: {direction_line: -1}\n", "stepper.direction_line is required"},
		{"enable line", "sim: {enable: false}\nstepper: {direction_line: 5, enable_line: 5}\n", "stepper.enable_line must differ from stepper.direction_line"},
		{"direction on led line", "sim: {enable: false}\nstepper: {direction_line: 9}\n", "stepper.direction_line 9 is already used by leds.lines"},
		{"enable on led line", "sim: {enable: false}\nstepper: {enable_line: 15}\n", "stepper.enable_line 15 is already used by leds.lines"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeTempConfig(t, tc.yaml))
			requireErrEq(t, err, tc.want)
		})
	}
}

func TestLoad_DisabledSectionsSkipValidation(t *testing.T) {
	path := writeTempConfig(t, `
sim: {enable: false}
compass: {enable: false, backend: bogus}
stepper: {enable: false, direction_line: -1}
`)
	if _, err := Load(path); err != nil {
		t.Fatalf("Load() error: %v", err)
	}
}

func TestSimConfig_Omits(t *testing.T) {
	s := SimConfig{Omit: []string{" Stepper "}}
	if !s.Omits("stepper") || s.Omits("compass") {
		t.Fatalf("Omits mismatch for %v", s.Omit)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatalf("expected error")
	}
}
