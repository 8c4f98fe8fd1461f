//go:build !linux && !darwin && !freebsd && !netbsd && !openbsd

package term

import "os"

func isTerminal(f *os.File) bool {
	return charDevice(f)
}
