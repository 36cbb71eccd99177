//go:build !windows

package wallet

import "golang.org/x/sys/unix"

// mlock pins key bytes in RAM so they never reach swap.
func mlock(data []byte) bool {
	return len(data) > 0 && unix.Mlock(data) == nil
}

func munlock(data []byte) {
	if len(data) > 0 {
		_ = unix.Munlock(data)
	}
}
