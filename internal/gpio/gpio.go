// Package gpio requests output lines from a GPIO character device.
package gpio

// Line is a single requested output.
type Line interface {
	SetValue(v int) error
	Close() error
}

// Lines is a group of outputs driven together, in request order.
type Lines interface {
	SetValues(vs []int) error
	Close() error
}

// Consumer labels every line this process requests.
const Consumer = "orient"
