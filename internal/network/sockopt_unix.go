//go:build !windows

package network

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

// setBroadcast enables sending to broadcast addresses on the socket
func setBroadcast(fd uintptr) error {
	if err := unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_BROADCAST, 1); err != nil {
		return fmt.Errorf("set SO_BROADCAST: %w", err)
	}
	return nil
}

// IsAddrInUse reports whether err means the address is already bound
func IsAddrInUse(err error) bool {
	return errors.Is(err, unix.EADDRINUSE)
}
