//go:build windows

package network

import (
	"errors"
	"fmt"
	"syscall"

	"golang.org/x/sys/windows"
)

// WSAEADDRINUSE as reported by winsock
const errAddrInUse = syscall.Errno(10048)

// setBroadcast enables sending to broadcast addresses on the socket
func setBroadcast(fd uintptr) error {
	if err := windows.SetsockoptInt(windows.Handle(fd), windows.SOL_SOCKET, windows.SO_BROADCAST, 1); err != nil {
		return fmt.Errorf("set SO_BROADCAST: %w", err)
	}
	return nil
}

// IsAddrInUse reports whether err means the address is already bound
func IsAddrInUse(err error) bool {
	return errors.Is(err, errAddrInUse)
}
