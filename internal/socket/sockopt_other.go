//go:build !linux

package socket

import "syscall"

// Zero-copy send and SO_TIMESTAMPING are Linux-only mechanisms; on
// other platforms the corresponding socket calls report Unsupported,
// per spec.md §4.9's timestamp_outgoing/timestamp_incoming contract
// ("may return Unsupported").
func enableZeroCopy(fd uintptr) error      { return errUnsupported }
func enableTimestamping(fd uintptr) error  { return errUnsupported }

func controlForZeroCopy(_, _ string, _ syscall.RawConn) error     { return errUnsupported }
func controlForTimestamping(_, _ string, _ syscall.RawConn) error { return errUnsupported }
