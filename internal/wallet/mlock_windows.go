//go:build windows

package wallet

import (
	"unsafe"

	"golang.org/x/sys/windows"
)

// mlock pins key bytes in the working set with VirtualLock.
func mlock(data []byte) bool {
	if len(data) == 0 {
		return false
	}
	addr, size := uintptr(unsafe.Pointer(&data[0])), uintptr(len(data))
	return windows.VirtualLock(addr, size) == nil
}

func munlock(data []byte) {
	if len(data) == 0 {
		return
	}
	addr, size := uintptr(unsafe.Pointer(&data[0])), uintptr(len(data))
	_ = windows.VirtualUnlock(addr, size)
}
