// Command ipcbuf empirically determines the buffer size of an IPC
// channel (pipe, fifo, socket, or socketpair) by filling it with
// nonblocking writes until the kernel refuses more data, then reading
// everything back.
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"

	"ipcbuf/internal/adapter/channel"
	"ipcbuf/internal/adapter/drain"
	"ipcbuf/internal/adapter/logger"
	"ipcbuf/internal/adapter/probe"
	"ipcbuf/internal/adapter/report"
	"ipcbuf/internal/app"
	"ipcbuf/internal/config"
)

const usage = `Usage: ipcbuf [-c|-l] [-q] [-P|-R|-S bufsiz] [-f file] [-n num] [-s type] [-t type] [chunk] [chunk|inc]
-P size      try to set the pipe's size to this many bytes (Linux only)
-R size      try to set the SO_RCVBUF size to this many bytes (socket/socketpair only)
-S size      try to set the SO_SNDBUF size to this many bytes (socket/socketpair only)
-c           write two consecutive chunks
-f file      read defaults from this TOML file (flags win)
-h           print this help
-l           write in a loop
-n num       write this many additional chunks
-q           be quiet and only print the final number
-s type      use this type of socket ([inet[6]-]dgram or [inet[6]-]stream)
-t type      use this type of IPC (fifo, pipe, socket, socketpair)
[chunk]      initial chunk size; 1 if not given
[chunk|inc]  second chunk size or loop increment
             if not given, use first chunk size in chunk mode, double first chunk size in loop mode
`

func main() {
	log := logger.New()

	// Hidden role: the accept-and-drain side of a stream-socket run.
	if len(os.Args) > 1 && os.Args[1] == channel.DrainRoleArg {
		if err := channel.RunDrainRole(os.Args[2:], log); err != nil {
			fatal(err)
		}
		return
	}

	fs := flag.NewFlagSet("ipcbuf", flag.ExitOnError)
	fs.Usage = func() { fmt.Fprint(os.Stderr, usage) }

	var p config.Params
	fs.IntVar(&p.PipeBuf, "P", -1, "pipe size in bytes (Linux only)")
	fs.IntVar(&p.RcvBuf, "R", -1, "SO_RCVBUF size in bytes")
	fs.IntVar(&p.SndBuf, "S", -1, "SO_SNDBUF size in bytes")
	fs.BoolVar(&p.ChunkMode, "c", false, "write consecutive chunks")
	fs.StringVar(&p.File, "f", "", "TOML defaults file")
	fs.BoolVar(&p.LoopMode, "l", false, "write in a loop")
	fs.IntVar(&p.NumChunks, "n", -1, "number of additional chunks")
	fs.BoolVar(&p.Quiet, "q", false, "only print the final number")
	fs.StringVar(&p.SockSpec, "s", "", "socket type")
	fs.StringVar(&p.Variant, "t", "", "IPC type")
	if err := fs.Parse(os.Args[1:]); err != nil {
		os.Exit(1)
	}

	p.Chunk1, p.Chunk2 = -1, -1
	args := fs.Args()
	if len(args) > 2 {
		fs.Usage()
		os.Exit(1)
	}
	if len(args) > 0 {
		p.Chunk1 = number(args[0])
	}
	if len(args) > 1 {
		p.Chunk2 = number(args[1])
	}

	cfg, err := config.Build(p)
	if err != nil {
		fatal(err)
	}

	rep := report.NewConsole(os.Stdout, cfg.Quiet)
	dr := drain.New(rep)
	prov := channel.ForVariant(cfg, rep, log, dr)
	prober := probe.New(cfg, rep, log)

	if err := app.NewService(cfg, prov, prober, rep, log).Run(); err != nil {
		fatal(err)
	}
}

// number parses a positional chunk argument. Chunk sizes may be zero
// but never negative.
func number(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		fatal(fmt.Errorf("invalid number %q", s))
	}
	return n
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "ipcbuf: %v\n", err)
	os.Exit(1)
}
