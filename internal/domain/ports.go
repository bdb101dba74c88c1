package domain

// Provisioner builds, reports on, drains, and tears down one IPC
// channel variant. One implementation exists per Variant; the
// orchestrator selects it at startup and never branches on the
// variant again.
type Provisioner interface {
	// Describe returns the human label used in the test header,
	// e.g. "pipe" or "PF_INET STREAM socket".
	Describe() string

	// Provision creates the connected endpoint pair with both ends
	// nonblocking. Any partially created resource is released before
	// an error is returned.
	Provision() (Endpoints, error)

	// PreReport emits variant-specific kernel metrics (pipe capacity,
	// socket options, system tunables) before the probe runs.
	PreReport(ep Endpoints) error

	// Drain recovers whatever the kernel buffered on the read side
	// after the probe finished. minBuf is the largest chunk the probe
	// ever wrote; the drain buffer must be at least that big.
	Drain(ep Endpoints, minBuf int) (int, error)

	// Teardown closes both endpoints and removes any transient
	// filesystem path. Safe to call more than once.
	Teardown(ep Endpoints)
}

// Prober drives nonblocking writes against the write endpoint until
// the kernel refuses more data.
type Prober interface {
	Probe(fd int) (ProbeResult, error)
}

// Drainer consumes the read endpoint until it is empty or closed.
type Drainer interface {
	Drain(fd, minBuf int) (int, error)
}

// Reporter emits measurement output. All methods except Final are
// suppressed in quiet mode; Final always prints.
type Reporter interface {
	// Metric prints one labeled integer value.
	Metric(label string, value int)
	// Progress prints the outcome of a single write attempt.
	Progress(wrote, wanted, total int)
	// Printf prints free-form text.
	Printf(format string, args ...any)
	// Final prints the observed write total. In quiet mode it is the
	// only stdout line of the run.
	Final(total int)
}

// Logger provides structured logging.
type Logger interface {
	Info(msg string, args ...any)
	Error(msg string, args ...any)
}
