// Package term answers whether a stream is an interactive terminal, so
// that the REPL only prompts and echoes banners when a person is typing.
package term

import "os"

// IsTerminal reports whether f is connected to a terminal.
func IsTerminal(f *os.File) bool {
	if f == nil {
		return false
	}
	return isTerminal(f)
}

// charDevice is the portable approximation: terminals are character
// devices, but so is /dev/null.
func charDevice(f *os.File) bool {
	stat, err := f.Stat()
	if err != nil {
		return false
	}
	return stat.Mode()&os.ModeCharDevice != 0
}
