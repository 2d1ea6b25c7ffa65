// Package reactor multiplexes many client file descriptors through a
// single Linux epoll instance, so one goroutine can cooperatively service
// every connection without a thread or goroutine per client (spec.md §5).
package reactor

// Event is one ready-fd notification.
type Event struct {
	Fd       uintptr
	UserData uintptr
}

// Reactor is the platform-independent multiplexer contract. The only
// implementation in this repo is the Linux epoll backend in
// reactor_linux.go; the interface exists so server.Server depends on a
// capability, not a concrete OS mechanism.
type Reactor interface {
	// Register starts monitoring fd for readability, tagging it with an
	// opaque userData value returned alongside any event on that fd. Only
	// the low 32 bits of userData are kept.
	Register(fd uintptr, userData uintptr) error

	// Deregister stops monitoring fd.
	Deregister(fd uintptr) error

	// Wait blocks until at least one registered fd is readable (or an
	// error occurs) and fills events, returning the count filled.
	Wait(events []Event) (int, error)

	// Close releases the underlying poller.
	Close() error
}
