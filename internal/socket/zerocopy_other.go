//go:build !linux

package socket

import "net"

// MSG_ZEROCOPY sends and the MSG_ERRQUEUE completion path are
// Linux-only; elsewhere there is never anything to drain, and a
// zero-copy send attempt always reports Unsupported so the caller
// falls back to a normal copying write.
func drainErrorQueue(fd int, zc *ZeroCopyTable, resolveTimestamp func(id uint32)) int {
	return 0
}

func sendZeroCopy(fd int, data []byte, dest *net.UDPAddr) (int, error) {
	return 0, errUnsupported
}
