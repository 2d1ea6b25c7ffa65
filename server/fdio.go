package server

import (
	"io"

	"golang.org/x/sys/unix"
)

// rawConn adapts a raw file descriptor to io.Reader/io.Writer so the
// ringbuf types can drive it directly, the way the rest of this codebase
// accepts interfaces instead of concrete transports.
type rawConn struct {
	fd int
}

func (c rawConn) Read(p []byte) (int, error) {
	n, err := unix.Read(c.fd, p)
	if n == 0 && err == nil {
		return 0, io.EOF
	}
	return n, err
}

func (c rawConn) Write(p []byte) (int, error) {
	return unix.Write(c.fd, p)
}

func (c rawConn) Close() error {
	return unix.Close(c.fd)
}
