//go:build linux

package socket

import (
	"fmt"
	"syscall"

	"golang.org/x/sys/unix"
)

// enableZeroCopy turns on SO_ZEROCOPY for fd, the Linux mechanism
// spec.md §4.9's zero-copy accounting is built around. Grounded on the
// beacon reference repo's setSocketOptions pattern
// (internal/transport/socket_linux.go): a raw syscall.RawConn.Control
// closure setting one sockopt and tolerating ENOPROTOOPT on older
// kernels.
func enableZeroCopy(fd uintptr) error {
	if err := unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_ZEROCOPY, 1); err != nil {
		if err == unix.ENOPROTOOPT {
			return errUnsupported
		}
		return fmt.Errorf("failed to set SO_ZEROCOPY: %w", err)
	}
	return nil
}

// enableTimestamping turns on SO_TIMESTAMPING with the flags needed to
// surface software TX timestamps; no hardware timestamping flag is set.
func enableTimestamping(fd uintptr) error {
	flags := unix.SOF_TIMESTAMPING_TX_SOFTWARE |
		unix.SOF_TIMESTAMPING_SOFTWARE |
		unix.SOF_TIMESTAMPING_OPT_ID
	if err := unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_TIMESTAMPING, flags); err != nil {
		if err == unix.ENOPROTOOPT {
			return errUnsupported
		}
		return fmt.Errorf("failed to set SO_TIMESTAMPING: %w", err)
	}
	return nil
}

// controlForZeroCopy is a net.ListenConfig-compatible Control
// function that enables zero-copy on the freshly created socket.
func controlForZeroCopy(_, _ string, c syscall.RawConn) error {
	var sockErr error
	if err := c.Control(func(fd uintptr) {
		sockErr = enableZeroCopy(fd)
	}); err != nil {
		return fmt.Errorf("raw conn control failed: %w", err)
	}
	return sockErr
}

// controlForTimestamping is a net.ListenConfig-compatible Control
// function that enables kernel timestamping on the freshly created
// socket.
func controlForTimestamping(_, _ string, c syscall.RawConn) error {
	var sockErr error
	if err := c.Control(func(fd uintptr) {
		sockErr = enableTimestamping(fd)
	}); err != nil {
		return fmt.Errorf("raw conn control failed: %w", err)
	}
	return sockErr
}
