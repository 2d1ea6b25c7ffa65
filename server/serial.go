package server

import (
	"fmt"
	"sync/atomic"

	"golang.org/x/sys/unix"

	"github.com/cactuscore/ipbusd/ipbus"
	"github.com/cactuscore/ipbusd/logx"
)

// SerialServer drives a single IPbus client over one or two raw serial
// device fds (the original's serve-serial.c — input and output devices may
// be the same tty opened once, or a genuinely separate TX/RX pair).
type SerialServer struct {
	cfg     *Config
	handler ipbus.MemoryHandler

	inputFd  int
	outputFd int

	client *ipbus.Client

	shuttingDown atomic.Bool
}

// NewSerialServer opens inputPath (and outputPath, if different) in raw
// non-blocking mode and wires a single Client to them.
func NewSerialServer(cfg *Config, handler ipbus.MemoryHandler, inputPath, outputPath string) (*SerialServer, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	inFd, err := unix.Open(inputPath, unix.O_RDWR|unix.O_NONBLOCK, 0)
	if err != nil {
		return nil, fmt.Errorf("server: open %s: %w", inputPath, err)
	}
	outFd := inFd
	if outputPath != inputPath {
		outFd, err = unix.Open(outputPath, unix.O_RDWR|unix.O_NONBLOCK, 0)
		if err != nil {
			unix.Close(inFd)
			return nil, fmt.Errorf("server: open %s: %w", outputPath, err)
		}
	}
	return &SerialServer{
		cfg:      cfg,
		handler:  handler,
		inputFd:  inFd,
		outputFd: outFd,
		client:   ipbus.NewClient(cfg.RingCapacity, handler),
	}, nil
}

// Serve polls the input fd in a tight loop (there is exactly one client, so
// no reactor/epoll is warranted) until Shutdown is called.
func (s *SerialServer) Serve() error {
	logx.Info("serving IPbus over serial fd=%d -> fd=%d", s.inputFd, s.outputFd)
	buf := make([]byte, s.cfg.MaxRequestBytes)
	for !s.shuttingDown.Load() {
		n, err := unix.Read(s.inputFd, buf)
		if err != nil && err != unix.EAGAIN {
			return fmt.Errorf("server: serial read: %w", err)
		}
		if n <= 0 {
			continue
		}
		s.client.Shim.Append(buf[:n])
		s.client.PromoteWords()
		if _, procErr := s.client.Process(); procErr != nil {
			logx.Error("process serial client: %v", procErr)
			continue
		}
		if _, werr := s.client.Output.WriteTo(rawConn{fd: s.outputFd}, s.client.Output.Size()); werr != nil {
			return fmt.Errorf("server: serial write: %w", werr)
		}
	}
	return nil
}

// Shutdown stops Serve's loop after its current iteration.
func (s *SerialServer) Shutdown() {
	s.shuttingDown.Store(true)
}

// Close releases the underlying device fds.
func (s *SerialServer) Close() error {
	if s.outputFd != s.inputFd {
		unix.Close(s.outputFd)
	}
	return unix.Close(s.inputFd)
}
