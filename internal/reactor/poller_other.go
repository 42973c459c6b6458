//go:build !linux

package reactor

import (
	"golang.org/x/sys/unix"
)

// pollFallback backs Reactor on non-Linux POSIX platforms with the
// portable poll(2) syscall, mirroring the Linux/Darwin split the
// beacon reference repo uses for its socket option code
// (internal/transport/socket_linux.go vs socket_darwin.go).
type pollFallback struct {
	interest map[int]Interest
}

func newPoller() (poller, error) {
	return &pollFallback{interest: make(map[int]Interest)}, nil
}

func (p *pollFallback) add(fd int, interest Interest) error {
	p.interest[fd] = interest
	return nil
}

func (p *pollFallback) modify(fd int, interest Interest) error {
	p.interest[fd] = interest
	return nil
}

func (p *pollFallback) remove(fd int) error {
	delete(p.interest, fd)
	return nil
}

func (p *pollFallback) wait(timeoutMillis int) ([]pollEvent, error) {
	if len(p.interest) == 0 {
		return nil, nil
	}

	fds := make([]unix.PollFd, 0, len(p.interest))
	order := make([]int, 0, len(p.interest))
	for fd, interest := range p.interest {
		var events int16
		if interest&InterestRead != 0 {
			events |= unix.POLLIN
		}
		if interest&InterestWrite != 0 {
			events |= unix.POLLOUT
		}
		fds = append(fds, unix.PollFd{Fd: int32(fd), Events: events})
		order = append(order, fd)
	}

	n, err := unix.Poll(fds, timeoutMillis)
	if err != nil {
		if err == unix.EINTR {
			return nil, nil
		}
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}

	out := make([]pollEvent, 0, n)
	for i, pfd := range fds {
		if pfd.Revents == 0 {
			continue
		}
		pe := pollEvent{fd: order[i]}
		if pfd.Revents&(unix.POLLERR|unix.POLLHUP|unix.POLLNVAL) != 0 {
			pe.errored = true
			pe.err = unix.ECONNRESET
		}
		pe.readable = pfd.Revents&unix.POLLIN != 0
		pe.writable = pfd.Revents&unix.POLLOUT != 0
		out = append(out, pe)
	}
	return out, nil
}

func (p *pollFallback) close() error {
	return nil
}
