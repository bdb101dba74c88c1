package domain

// Variant selects the kind of IPC channel under test.
type Variant int

const (
	VariantPipe Variant = iota
	VariantFifo
	VariantSocket
	VariantSocketPair
)

func (v Variant) String() string {
	switch v {
	case VariantPipe:
		return "pipe"
	case VariantFifo:
		return "fifo"
	case VariantSocket:
		return "socket"
	case VariantSocketPair:
		return "socketpair"
	}
	return "unknown"
}

// SockDomain is the address family for socket channels.
type SockDomain int

const (
	DomainLocal SockDomain = iota
	DomainInet
	DomainInet6
)

func (d SockDomain) String() string {
	switch d {
	case DomainLocal:
		return "PF_LOCAL"
	case DomainInet:
		return "PF_INET"
	case DomainInet6:
		return "PF_INET6"
	}
	return "unknown"
}

// SockType is the socket semantics for socket and socketpair channels.
type SockType int

const (
	TypeDgram SockType = iota
	TypeStream
)

func (t SockType) String() string {
	if t == TypeStream {
		return "STREAM"
	}
	return "DGRAM"
}

// Mode selects the write strategy of the capacity probe.
type Mode int

const (
	// ModeLoop grows the chunk size each iteration until the kernel
	// refuses a write.
	ModeLoop Mode = iota
	// ModeChunk writes a fixed sequence of chunks regardless of
	// individual outcomes.
	ModeChunk
)

func (m Mode) String() string {
	if m == ModeChunk {
		return "chunk"
	}
	return "loop"
}

// RunConfig is the immutable configuration for one measurement run.
// Fields holding -1 mean "not requested".
type RunConfig struct {
	Variant Variant
	Mode    Mode

	// Chunk1 is the initial chunk size. Chunk2 is the loop increment
	// (loop mode, -1 means double) or the size of the additional
	// chunks (chunk mode, -1 means same as Chunk1). NumChunks is the
	// number of additional chunks in chunk mode.
	Chunk1    int
	Chunk2    int
	NumChunks int

	Quiet bool

	// Requested buffer sizes; -1 leaves the kernel default.
	RcvBuf  int
	SndBuf  int
	PipeBuf int

	Domain SockDomain
	Type   SockType

	// Transient filesystem paths and the loopback port used by the
	// provisioner. Paths are removed unconditionally at teardown.
	FifoPath   string
	SocketPath string
	Port       int
}

// ProbeResult accumulates what the capacity probe observed.
type ProbeResult struct {
	// Total is the number of bytes the kernel accepted.
	Total int
	// Largest is the biggest single chunk that ever succeeded.
	Largest int
	// Iterations counts write attempts that made progress.
	Iterations int
}

// Endpoints is a provisioned channel: a connected read/write fd pair.
// R and W are the same descriptor for datagram sockets. R is -1 when
// the read side is owned by a drain-role child process.
type Endpoints struct {
	R int
	W int
}
