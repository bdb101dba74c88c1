package channel

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"ipcbuf/internal/domain"
)

// connectRetries bounds the backoff loop of the connecting side. The
// listener is up before the drain-role child is even spawned, so in
// practice the first attempt succeeds; the retries cover a slowly
// scheduled kernel on the loopback path.
const (
	connectRetries = 50
	connectBackoff = 10 * time.Millisecond
)

// Socket provisions a bound socket in the local, IPv4, or IPv6
// loopback domain. Datagram sockets connect to themselves and one
// process owns both directions. Stream sockets need a peer whose
// accept is independent of the writer, so the accept-and-drain role
// runs as a child process that inherits the listening descriptor.
type Socket struct {
	cfg domain.RunConfig
	rep domain.Reporter
	log domain.Logger
	dr  domain.Drainer

	child  *exec.Cmd
	ctl    io.WriteCloser
	out    io.ReadCloser
	waited bool

	pathBound bool
	wClosed   bool
	torn      bool
}

// NewSocket creates the socket provisioner.
func NewSocket(cfg domain.RunConfig, rep domain.Reporter, log domain.Logger, dr domain.Drainer) *Socket {
	return &Socket{cfg: cfg, rep: rep, log: log, dr: dr}
}

// Describe returns the test header label.
func (s *Socket) Describe() string {
	return fmt.Sprintf("%s %s socket", s.cfg.Domain, s.cfg.Type)
}

func (s *Socket) sockaddr() (unix.Sockaddr, int) {
	switch s.cfg.Domain {
	case domain.DomainInet:
		return &unix.SockaddrInet4{Port: s.cfg.Port, Addr: [4]byte{127, 0, 0, 1}}, unix.AF_INET
	case domain.DomainInet6:
		var addr [16]byte
		addr[15] = 1
		return &unix.SockaddrInet6{Port: s.cfg.Port, Addr: addr}, unix.AF_INET6
	default:
		return &unix.SockaddrUnix{Name: s.cfg.SocketPath}, unix.AF_UNIX
	}
}

func (s *Socket) sockType() int {
	if s.cfg.Type == domain.TypeStream {
		return unix.SOCK_STREAM
	}
	return unix.SOCK_DGRAM
}

// Provision binds the socket and establishes the connection: in one
// step for datagram sockets, through the drain-role child for stream
// sockets.
func (s *Socket) Provision() (domain.Endpoints, error) {
	sa, family := s.sockaddr()

	fd, err := unix.Socket(family, s.sockType(), 0)
	if err != nil {
		return domain.Endpoints{}, fmt.Errorf("socket: %w", err)
	}
	if err := unix.Bind(fd, sa); err != nil {
		closeQuiet(fd)
		return domain.Endpoints{}, fmt.Errorf("bind: %w", err)
	}
	s.pathBound = s.cfg.Domain == domain.DomainLocal

	if s.cfg.Type == domain.TypeStream {
		return s.provisionStream(fd, sa, family)
	}

	// Datagram: the bound socket connects to its own address and is
	// both endpoints of the channel.
	if err := unix.Connect(fd, sa); err != nil {
		closeQuiet(fd)
		return domain.Endpoints{}, fmt.Errorf("connect: %w", err)
	}
	if err := applyBufferSizes(s.cfg, fd, fd); err != nil {
		closeQuiet(fd)
		return domain.Endpoints{}, err
	}
	if err := unix.SetNonblock(fd, true); err != nil {
		closeQuiet(fd)
		return domain.Endpoints{}, fmt.Errorf("set nonblocking: %w", err)
	}
	return domain.Endpoints{R: fd, W: fd}, nil
}

// provisionStream spawns the accept-and-drain child, hands it the
// already-listening descriptor, and connects the write side. Listen
// happens before the child exists, so the kernel backlog absorbs any
// accept/connect ordering.
func (s *Socket) provisionStream(lfd int, sa unix.Sockaddr, family int) (domain.Endpoints, error) {
	if err := unix.Listen(lfd, 1); err != nil {
		closeQuiet(lfd)
		return domain.Endpoints{}, fmt.Errorf("listen: %w", err)
	}

	exe, err := os.Executable()
	if err != nil {
		closeQuiet(lfd)
		return domain.Endpoints{}, fmt.Errorf("resolve executable: %w", err)
	}

	args := []string{DrainRoleArg}
	if s.cfg.RcvBuf >= 0 {
		args = append(args, "-rcvbuf", strconv.Itoa(s.cfg.RcvBuf))
	}
	cmd := exec.Command(exe, args...)
	cmd.Stderr = os.Stderr
	cmd.SysProcAttr = sysProcAttr()

	listener := os.NewFile(uintptr(lfd), "listener")
	cmd.ExtraFiles = []*os.File{listener}

	ctl, err := cmd.StdinPipe()
	if err != nil {
		listener.Close()
		return domain.Endpoints{}, fmt.Errorf("drain role control pipe: %w", err)
	}
	out, err := cmd.StdoutPipe()
	if err != nil {
		listener.Close()
		return domain.Endpoints{}, fmt.Errorf("drain role result pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		listener.Close()
		return domain.Endpoints{}, fmt.Errorf("spawn drain role: %w", err)
	}
	// The child holds its own copy of the listener now.
	listener.Close()
	s.child = cmd
	s.ctl = ctl
	s.out = out
	s.log.Info("drain role started", "pid", cmd.Process.Pid)

	wfd, err := unix.Socket(family, s.sockType(), 0)
	if err != nil {
		return domain.Endpoints{}, fmt.Errorf("socket: %w", err)
	}
	if err := s.connectBackoff(wfd, sa); err != nil {
		closeQuiet(wfd)
		return domain.Endpoints{}, err
	}
	if err := applyBufferSizes(s.cfg, -1, wfd); err != nil {
		closeQuiet(wfd)
		return domain.Endpoints{}, err
	}
	if err := unix.SetNonblock(wfd, true); err != nil {
		closeQuiet(wfd)
		return domain.Endpoints{}, fmt.Errorf("set nonblocking: %w", err)
	}
	return domain.Endpoints{R: -1, W: wfd}, nil
}

func (s *Socket) connectBackoff(fd int, sa unix.Sockaddr) error {
	var err error
	for attempt := 0; attempt < connectRetries; attempt++ {
		err = unix.Connect(fd, sa)
		if err == nil {
			return nil
		}
		if !errors.Is(err, unix.ECONNREFUSED) && !errors.Is(err, unix.EINTR) {
			break
		}
		time.Sleep(connectBackoff)
	}
	return fmt.Errorf("connect: %w", err)
}

// PreReport emits the relevant tunable and the write side's socket
// options. For stream sockets the accepted peer lives in the child,
// so the receive buffer is read from the connected socket here.
func (s *Socket) PreReport(ep domain.Endpoints) error {
	if err := reportTunable(s.rep, domain.VariantSocket, s.cfg.Domain, s.cfg.Type); err != nil {
		return err
	}
	if err := reportSockOpt(s.rep, ep.W, unix.SO_SNDBUF, "SO_SNDBUF"); err != nil {
		return err
	}
	if err := reportSockOpt(s.rep, ep.W, unix.SO_SNDLOWAT, "SO_SNDLOWAT"); err != nil {
		return err
	}
	rfd := ep.R
	if rfd < 0 {
		rfd = ep.W
	}
	return reportSockOpt(s.rep, rfd, unix.SO_RCVBUF, "SO_RCVBUF")
}

// Drain recovers the buffered bytes. Datagram sockets read their own
// descriptor; stream sockets release the child by closing the write
// side and the control pipe, then collect its byte count.
func (s *Socket) Drain(ep domain.Endpoints, minBuf int) (int, error) {
	if s.cfg.Type != domain.TypeStream {
		return s.dr.Drain(ep.R, minBuf)
	}

	// Closing the write side first lets the child read to EOF instead
	// of stopping at a momentarily empty queue.
	closeQuiet(ep.W)
	s.wClosed = true

	fmt.Fprintf(s.ctl, "%d\n", minBuf)
	s.ctl.Close()

	line, err := bufio.NewReader(s.out).ReadString('\n')
	if err != nil {
		return 0, fmt.Errorf("drain role result: %w", err)
	}
	n, err := strconv.Atoi(strings.TrimSpace(line))
	if err != nil {
		return 0, fmt.Errorf("drain role result %q: %w", strings.TrimSpace(line), err)
	}
	s.waited = true
	if err := s.child.Wait(); err != nil {
		return n, fmt.Errorf("drain role: %w", err)
	}
	return n, nil
}

// Teardown closes the endpoints, reaps the drain-role child if it is
// still around, and unlinks the local socket path.
func (s *Socket) Teardown(ep domain.Endpoints) {
	if s.torn {
		return
	}
	s.torn = true

	if !s.wClosed {
		closeQuiet(ep.W)
	}
	if ep.R >= 0 && ep.R != ep.W {
		closeQuiet(ep.R)
	}

	if s.child != nil && !s.waited {
		s.ctl.Close()
		_ = s.child.Process.Kill()
		_ = s.child.Wait()
		s.waited = true
	}

	if s.pathBound {
		if err := os.Remove(s.cfg.SocketPath); err != nil && !os.IsNotExist(err) {
			s.log.Error("remove socket path failed", "path", s.cfg.SocketPath, "err", err)
		}
	}
}
