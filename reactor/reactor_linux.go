//go:build linux
// +build linux

package reactor

import (
	"golang.org/x/sys/unix"
)

// linuxReactor is an epoll(7)-based Reactor. Registrations are
// level-triggered EPOLLIN only: the IPbus engine never needs EPOLLOUT
// backpressure (responses are small control packets written in one shot)
// and edge-triggering would require callers to drain each fd to EAGAIN,
// which the cooperative per-client Process loop does not need.
type linuxReactor struct {
	epfd int
}

// NewReactor constructs a Linux epoll-backed Reactor.
func NewReactor() (Reactor, error) {
	epfd, err := unix.EpollCreate1(0)
	if err != nil {
		return nil, err
	}
	return &linuxReactor{epfd: epfd}, nil
}

func (r *linuxReactor) Register(fd uintptr, udata uintptr) error {
	event := &unix.EpollEvent{
		Events: unix.EPOLLIN,
		Fd:     int32(fd),
		Pad:    int32(udata),
	}
	return unix.EpollCtl(r.epfd, unix.EPOLL_CTL_ADD, int(fd), event)
}

func (r *linuxReactor) Deregister(fd uintptr) error {
	return unix.EpollCtl(r.epfd, unix.EPOLL_CTL_DEL, int(fd), nil)
}

func (r *linuxReactor) Wait(events []Event) (int, error) {
	rawEvents := make([]unix.EpollEvent, len(events))
	n, err := unix.EpollWait(r.epfd, rawEvents, -1)
	if err != nil {
		if err == unix.EINTR {
			return 0, nil
		}
		return 0, err
	}
	for i := 0; i < n; i++ {
		events[i] = Event{
			Fd:       uintptr(rawEvents[i].Fd),
			UserData: uintptr(uint32(rawEvents[i].Pad)),
		}
	}
	return n, nil
}

func (r *linuxReactor) Close() error {
	return unix.Close(r.epfd)
}
