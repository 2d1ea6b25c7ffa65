// Package server provides the TCP and serial IPbus server facades: an
// accept loop, one reactor-driven cooperative event loop per process, and
// the glue between a transport fd and an ipbus.Client.
package server

import "github.com/cactuscore/ipbusd/ringbuf"

// Config holds everything a Server needs beyond the handler it serves.
// Defaults reproduce the original implementation's constants.
type Config struct {
	// ListenPort is the TCP port ListenAndServeTCP binds (original PORT).
	ListenPort int

	// MaxClients bounds concurrently connected TCP clients (original
	// MAX_CLIENTS); further accepts are refused until a slot frees up.
	MaxClients int

	// MaxRequestBytes is the largest single read issued per ready
	// notification (original MAX_REQ_LEN: the maximum IPbus packet size
	// that fits in one non-jumbo Ethernet frame, 368 words / 1472 bytes).
	MaxRequestBytes int

	// RingCapacity sizes each client's input/output WordRing.
	RingCapacity int
}

// DefaultConfig returns the original implementation's constants.
func DefaultConfig() *Config {
	return &Config{
		ListenPort:      60002,
		MaxClients:      50,
		MaxRequestBytes: 1472,
		RingCapacity:    ringbuf.DefaultCapacity,
	}
}
