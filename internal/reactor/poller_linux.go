//go:build linux

package reactor

import (
	"golang.org/x/sys/unix"
)

// epollPoller backs Reactor on Linux with epoll, the platform the
// teacher's own socket option code (internal/transport/socket_linux.go
// in the beacon reference repo) targets with a //go:build linux tag.
type epollPoller struct {
	epfd int
}

func newPoller() (poller, error) {
	fd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, err
	}
	return &epollPoller{epfd: fd}, nil
}

func interestToEpollEvents(interest Interest) uint32 {
	var events uint32
	if interest&InterestRead != 0 {
		events |= unix.EPOLLIN
	}
	if interest&InterestWrite != 0 {
		events |= unix.EPOLLOUT
	}
	events |= unix.EPOLLERR | unix.EPOLLHUP
	return events
}

func (p *epollPoller) add(fd int, interest Interest) error {
	ev := unix.EpollEvent{Events: interestToEpollEvents(interest), Fd: int32(fd)}
	return unix.EpollCtl(p.epfd, unix.EPOLL_CTL_ADD, fd, &ev)
}

func (p *epollPoller) modify(fd int, interest Interest) error {
	ev := unix.EpollEvent{Events: interestToEpollEvents(interest), Fd: int32(fd)}
	return unix.EpollCtl(p.epfd, unix.EPOLL_CTL_MOD, fd, &ev)
}

func (p *epollPoller) remove(fd int) error {
	return unix.EpollCtl(p.epfd, unix.EPOLL_CTL_DEL, fd, nil)
}

func (p *epollPoller) wait(timeoutMillis int) ([]pollEvent, error) {
	raw := make([]unix.EpollEvent, 64)
	n, err := unix.EpollWait(p.epfd, raw, timeoutMillis)
	if err != nil {
		if err == unix.EINTR {
			return nil, nil
		}
		return nil, err
	}

	out := make([]pollEvent, 0, n)
	for i := 0; i < n; i++ {
		e := raw[i]
		pe := pollEvent{fd: int(e.Fd)}
		if e.Events&(unix.EPOLLERR|unix.EPOLLHUP) != 0 {
			pe.errored = true
			pe.err = unix.ECONNRESET
		}
		pe.readable = e.Events&unix.EPOLLIN != 0
		pe.writable = e.Events&unix.EPOLLOUT != 0
		out = append(out, pe)
	}
	return out, nil
}

func (p *epollPoller) close() error {
	return unix.Close(p.epfd)
}
