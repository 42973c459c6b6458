//go:build linux

package socket

import (
	"encoding/binary"
	"net"

	"golang.org/x/sys/unix"
)

// Origin/code values from linux/errqueue.h, carried in the ancillary
// struct sock_extended_err attached to IP_RECVERR/IPV6_RECVERR control
// messages on a socket's error queue.
const (
	soEEOriginZeroCopy     = 5
	soEEOriginTimestamping = 4
	soEECodeZeroCopyCopied = 1
)

// extendedErr mirrors struct sock_extended_err's layout (__u32 errno;
// __u8 origin, type, code, pad; __u32 info, data;): 16 bytes, little
// endian on every Linux architecture this module targets.
type extendedErr struct {
	origin uint8
	code   uint8
	info   uint32
	data   uint32
}

func parseExtendedErr(raw []byte) (extendedErr, bool) {
	if len(raw) < 16 {
		return extendedErr{}, false
	}
	return extendedErr{
		origin: raw[4],
		code:   raw[6],
		info:   binary.LittleEndian.Uint32(raw[8:12]),
		data:   binary.LittleEndian.Uint32(raw[12:16]),
	}, true
}

// drainErrorQueue reads every pending notification off fd's socket
// error queue (MSG_ERRQUEUE), routing SO_EE_ORIGIN_ZEROCOPY
// notifications to zc.Complete and SO_EE_ORIGIN_TIMESTAMPING
// notifications to resolveTimestamp, and reports how many it
// consumed. The reactor's error callback uses the count to tell an
// ancillary notification (handled here, not fatal) apart from a real
// socket error (still nothing pending on the error queue).
func drainErrorQueue(fd int, zc *ZeroCopyTable, resolveTimestamp func(id uint32)) int {
	oob := make([]byte, 512)
	count := 0
	for {
		_, oobn, _, _, err := unix.Recvmsg(fd, nil, oob, unix.MSG_ERRQUEUE)
		if err != nil || oobn == 0 {
			return count
		}
		msgs, parseErr := unix.ParseSocketControlMessage(oob[:oobn])
		if parseErr != nil {
			return count
		}
		for _, m := range msgs {
			ee, ok := parseExtendedErr(m.Data)
			if !ok {
				continue
			}
			switch ee.origin {
			case soEEOriginZeroCopy:
				zc.Complete(ee.data, ee.code == soEECodeZeroCopyCopied)
				count++
			case soEEOriginTimestamping:
				resolveTimestamp(ee.data)
				count++
			}
		}
	}
}

func udpAddrToSockaddr(addr *net.UDPAddr) (unix.Sockaddr, error) {
	if ip4 := addr.IP.To4(); ip4 != nil {
		var a4 [4]byte
		copy(a4[:], ip4)
		return &unix.SockaddrInet4{Port: addr.Port, Addr: a4}, nil
	}
	ip16 := addr.IP.To16()
	if ip16 == nil {
		return nil, errUnsupported
	}
	var a16 [16]byte
	copy(a16[:], ip16)
	return &unix.SockaddrInet6{Port: addr.Port, Addr: a16}, nil
}

// sendZeroCopy issues a single MSG_ZEROCOPY sendmsg on fd. The kernel
// assigns the send the next sequence number in its per-socket
// zero-copy counter (starting at 0), which later arrives back on the
// error queue via drainErrorQueue.
func sendZeroCopy(fd int, data []byte, dest *net.UDPAddr) (int, error) {
	sa, err := udpAddrToSockaddr(dest)
	if err != nil {
		return 0, err
	}
	return unix.SendmsgN(fd, data, nil, sa, unix.MSG_ZEROCOPY)
}
