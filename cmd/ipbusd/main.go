// Command ipbusd serves IPbus v2 control-packet transactions over TCP or a
// serial link, against a choice of memory backends.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/cactuscore/ipbusd/backend"
	"github.com/cactuscore/ipbusd/ipbus"
	"github.com/cactuscore/ipbusd/logx"
	"github.com/cactuscore/ipbusd/server"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve-tcp":
		os.Exit(runServeTCP(os.Args[2:]))
	case "serve-serial":
		os.Exit(runServeSerial(os.Args[2:]))
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: ipbusd serve-tcp [flags] | serve-serial [flags] <input-dev> [output-dev]")
}

func buildHandler(mem, forwardDev string) (ipbus.MemoryHandler, func() error, error) {
	switch mem {
	case "test":
		h, err := backend.NewTestMem()
		if err != nil {
			return nil, nil, err
		}
		return h, h.Close, nil
	case "devmem":
		h, err := backend.NewDevMem(0)
		if err != nil {
			return nil, nil, err
		}
		return h, h.Close, nil
	case "dummy":
		return backend.NewDummy(), func() error { return nil }, nil
	case "null":
		return backend.NewNull(), func() error { return nil }, nil
	case "forward":
		if forwardDev == "" {
			return nil, nil, fmt.Errorf("-mem=forward requires -forward-dev")
		}
		h, closer, err := backend.OpenForwardDevice(forwardDev)
		if err != nil {
			return nil, nil, err
		}
		return h, closer.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown -mem backend %q (want test|devmem|dummy|null|forward)", mem)
	}
}

func runServeTCP(args []string) int {
	fs := flag.NewFlagSet("serve-tcp", flag.ExitOnError)
	port := fs.Int("port", 60002, "TCP listen port")
	maxClients := fs.Int("max-clients", 50, "maximum concurrent clients")
	mem := fs.String("mem", "test", "memory backend: test|devmem|dummy|null|forward")
	forwardDev := fs.String("forward-dev", "", "serial device to forward transactions to (mem=forward only)")
	debug := fs.Bool("debug", false, "enable debug logging")
	fs.Parse(args)

	if *debug {
		logx.SetLevel(logx.LevelDebug)
	}

	handler, closeHandler, err := buildHandler(*mem, *forwardDev)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ipbusd: %v\n", err)
		return 1
	}
	defer closeHandler()

	cfg := server.DefaultConfig()
	cfg.ListenPort = *port
	cfg.MaxClients = *maxClients

	srv, err := server.NewServer(cfg, handler)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ipbusd: %v\n", err)
		return 1
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logx.Info("caught signal, shutting down")
		srv.Shutdown()
	}()

	if err := srv.ListenAndServeTCP(); err != nil && err != server.ErrShuttingDown {
		fmt.Fprintf(os.Stderr, "ipbusd: %v\n", err)
		return 1
	}
	return 0
}

func runServeSerial(args []string) int {
	fs := flag.NewFlagSet("serve-serial", flag.ExitOnError)
	mem := fs.String("mem", "test", "memory backend: test|devmem|dummy|null|forward")
	forwardDev := fs.String("forward-dev", "", "serial device to forward transactions to (mem=forward only)")
	debug := fs.Bool("debug", false, "enable debug logging")
	fs.Parse(args)

	if *debug {
		logx.SetLevel(logx.LevelDebug)
	}

	rest := fs.Args()
	if len(rest) < 1 {
		usage()
		return 1
	}
	inputDev := rest[0]
	outputDev := inputDev
	if len(rest) >= 2 {
		outputDev = rest[1]
	}

	handler, closeHandler, err := buildHandler(*mem, *forwardDev)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ipbusd: %v\n", err)
		return 1
	}
	defer closeHandler()

	srv, err := server.NewSerialServer(server.DefaultConfig(), handler, inputDev, outputDev)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ipbusd: %v\n", err)
		return 1
	}
	defer srv.Close()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logx.Info("caught signal, shutting down")
		srv.Shutdown()
	}()

	if err := srv.Serve(); err != nil {
		fmt.Fprintf(os.Stderr, "ipbusd: %v\n", err)
		return 1
	}
	return 0
}
