package channel

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"

	"ipcbuf/internal/adapter/drain"
	"ipcbuf/internal/adapter/kernel"
	"ipcbuf/internal/adapter/report"
	"ipcbuf/internal/domain"
)

// DrainRoleArg is the hidden argv[1] that turns the binary into the
// accept-and-drain role of a stream-socket run.
const DrainRoleArg = "__drain"

// listenerFD is where the orchestrator puts the inherited listening
// descriptor (first ExtraFiles slot).
const listenerFD = 3

// RunDrainRole is the child side of a stream-socket measurement. It
// accepts the orchestrator's connection on the inherited listener,
// blocks until the probe is done (stdin EOF), drains the accepted
// endpoint, and prints the recovered byte count as its only stdout
// line.
func RunDrainRole(args []string, log domain.Logger) error {
	fs := flag.NewFlagSet("ipcbuf "+DrainRoleArg, flag.ContinueOnError)
	rcvBuf := fs.Int("rcvbuf", -1, "receive buffer size for the accepted connection")
	if err := fs.Parse(args); err != nil {
		return err
	}

	nfd, _, err := unix.Accept(listenerFD)
	if err != nil {
		return fmt.Errorf("accept: %w", err)
	}
	closeQuiet(listenerFD)
	defer closeQuiet(nfd)
	log.Info("connection accepted")

	if *rcvBuf >= 0 {
		if err := kernel.SetRcvBuf(nfd, *rcvBuf); err != nil {
			return fmt.Errorf("setsockopt(SO_RCVBUF): %w", err)
		}
	}
	if err := unix.SetNonblock(nfd, true); err != nil {
		return fmt.Errorf("set nonblocking: %w", err)
	}

	// Block until the writer is finished. The control line carries the
	// largest chunk it wrote so the drain buffer can cover it.
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return fmt.Errorf("read control pipe: %w", err)
	}
	minBuf, _ := strconv.Atoi(strings.TrimSpace(string(data)))

	eng := drain.New(report.NewConsole(io.Discard, true))
	n, err := eng.Drain(nfd, minBuf)
	if err != nil {
		return err
	}
	log.Info("drained", "bytes", n)

	fmt.Printf("%d\n", n)
	return nil
}
