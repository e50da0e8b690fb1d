package config

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"orient/internal/sensors/lsm303agr"
)

// Config is the wiring file. Timing and control constants are not
// configurable; they live with the code that uses them.
type Config struct {
	Log     LogConfig     `yaml:"log"`
	Sim     SimConfig     `yaml:"sim"`
	Compass CompassConfig `yaml:"compass"`
	LEDs    LEDConfig     `yaml:"leds"`
	Stepper StepperConfig `yaml:"stepper"`
}

type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// SimConfig replaces every hardware section with a simulated turntable.
type SimConfig struct {
	Enable           bool    `yaml:"enable"`
	InitialOffsetDeg float64 `yaml:"initial_offset_deg"`
	TurnRateDegPerS  float64 `yaml:"turn_rate_deg_per_sec"`
	FieldNT          float64 `yaml:"field_nt"`
	// Omit drops a capability from the simulated board ("compass", "stepper").
	Omit []string `yaml:"omit"`
}

type CompassConfig struct {
	Enable  bool   `yaml:"enable"`
	Backend string `yaml:"backend"`
	Bus     string `yaml:"bus"`
	Addr    uint16 `yaml:"addr"`
}

type LEDConfig struct {
	Chip  string `yaml:"chip"`
	Lines []int  `yaml:"lines"`
}

type StepperConfig struct {
	Enable        bool   `yaml:"enable"`
	PWMChip       string `yaml:"pwm_chip"`
	PWMChannel    int    `yaml:"pwm_channel"`
	DirectionChip string `yaml:"direction_chip"`
	DirectionLine int    `yaml:"direction_line"`
	EnableLine    int    `yaml:"enable_line"`
}

// Default returns a configuration that runs entirely in simulation.
func Default() Config {
	return Config{
		Log: LogConfig{Level: "info"},
		Sim: SimConfig{
			Enable:           true,
			InitialOffsetDeg: 120,
			TurnRateDegPerS:  45,
			FieldNT:          30000,
		},
		Compass: CompassConfig{Enable: true, Backend: "sysfs", Addr: lsm303agr.DefaultAddress()},
		LEDs: LEDConfig{
			Chip:  "gpiochip0",
			Lines: []int{8, 9, 10, 11, 12, 13, 14, 15},
		},
		Stepper: StepperConfig{
			Enable:        true,
			DirectionLine: 16,
			EnableLine:    -1,
		},
	}
}

// Load reads path over Default and validates the result.
func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Default()
	cfg.LEDs.Lines = nil
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, err
	}
	if cfg.LEDs.Lines == nil {
		cfg.LEDs.Lines = Default().LEDs.Lines
	}
	if err := cfg.normalize(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) normalize() error {
	c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level))
	switch c.Log.Level {
	case "":
		c.Log.Level = "info"
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of debug, info, warn, error")
	}

	if c.Sim.Enable {
		if c.Sim.TurnRateDegPerS <= 0 {
			return fmt.Errorf("sim.turn_rate_deg_per_sec must be > 0")
		}
		if c.Sim.FieldNT <= 0 {
			return fmt.Errorf("sim.field_nt must be > 0")
		}
		for _, o := range c.Sim.Omit {
			switch strings.ToLower(strings.TrimSpace(o)) {
			case "compass", "stepper":
			default:
				return fmt.Errorf("sim.omit: unknown capability %q", o)
			}
		}
		return nil
	}

	if strings.TrimSpace(c.LEDs.Chip) == "" {
		return fmt.Errorf("leds.chip is required")
	}
	if len(c.LEDs.Lines) != 8 {
		return fmt.Errorf("leds.lines must list 8 offsets")
	}

	if c.Compass.Enable {
		c.Compass.Backend = strings.ToLower(strings.TrimSpace(c.Compass.Backend))
		switch c.Compass.Backend {
		case "", "sysfs":
			c.Compass.Backend = "sysfs"
			if c.Compass.Bus == "" {
				c.Compass.Bus = "/dev/i2c-1"
			}
		case "periph":
			if c.Compass.Bus == "" {
				c.Compass.Bus = "1"
			}
		default:
			return fmt.Errorf("compass.backend must be sysfs or periph")
		}
		if c.Compass.Addr == 0 || c.Compass.Addr > 0x7F {
			return fmt.Errorf("compass.addr must be a 7-bit address")
		}
	}

	if c.Stepper.Enable {
		if c.Stepper.DirectionChip == "" {
			c.Stepper.DirectionChip = c.LEDs.Chip
		}
		if c.Stepper.PWMChannel < 0 {
			return fmt.Errorf("stepper.pwm_channel must be >= 0")
		}
		if c.Stepper.DirectionLine < 0 {
			return fmt.Errorf("stepper.direction_line is required")
		}
		if c.Stepper.EnableLine == c.Stepper.DirectionLine {
			return fmt.Errorf("stepper.enable_line must differ from stepper.direction_line")
		}
		if c.Stepper.DirectionChip == c.LEDs.Chip {
			if slices.Contains(c.LEDs.Lines, c.Stepper.DirectionLine) {
				return fmt.Errorf("stepper.direction_line %d is already used by leds.lines", c.Stepper.DirectionLine)
			}
			if c.Stepper.EnableLine >= 0 && slices.Contains(c.LEDs.Lines, c.Stepper.EnableLine) {
				return fmt.Errorf("stepper.enable_line %d is already used by leds.lines", c.Stepper.EnableLine)
			}
		}
	}
	return nil
}

// Omits reports whether the simulated board leaves out capability name.
func (s SimConfig) Omits(name string) bool {
	for _, o := range s.Omit {
		if strings.EqualFold(strings.TrimSpace(o), name) {
			return true
		}
	}
	return false
}
