// Package config builds the immutable RunConfig for a measurement
// run from CLI parameters and an optional TOML defaults file. All
// invalid combinations are rejected here, before any kernel resource
// exists.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"ipcbuf/internal/domain"
)

// Defaults for the transient filesystem footprint and the loopback
// port, overridable through the config file.
const (
	defaultFifoPath   = "fifo"
	defaultSocketPath = "socket"
	defaultPort       = 12345
)

// Params carries the raw inputs before validation. Empty strings and
// -1 mean "not given".
type Params struct {
	Variant  string // pipe, fifo, socket, socketpair
	SockSpec string // [inet[6]-]dgram|stream

	LoopMode  bool
	ChunkMode bool

	Chunk1    int // initial chunk size; -1 unset (defaults to 1)
	Chunk2    int // second chunk / increment; -1 unset
	NumChunks int // additional chunks; -1 unset (defaults to 1)

	Quiet bool

	PipeBuf int // -1 unset
	RcvBuf  int // -1 unset
	SndBuf  int // -1 unset

	File string // optional TOML defaults file
}

// fileConfig is the TOML shape of the optional defaults file.
type fileConfig struct {
	Variant    string `toml:"variant"`
	Socket     string `toml:"socket"`
	Mode       string `toml:"mode"`
	Chunks     int    `toml:"chunks"`
	Quiet      bool   `toml:"quiet"`
	PipeBuf    int    `toml:"pipe_buf"`
	RcvBuf     int    `toml:"rcv_buf"`
	SndBuf     int    `toml:"snd_buf"`
	FifoPath   string `toml:"fifo_path"`
	SocketPath string `toml:"socket_path"`
	Port       int    `toml:"port"`
}

// Build validates the parameters and produces the RunConfig.
func Build(p Params) (domain.RunConfig, error) {
	cfg := domain.RunConfig{
		Mode:       domain.ModeLoop,
		Chunk1:     1,
		Chunk2:     -1,
		NumChunks:  1,
		RcvBuf:     -1,
		SndBuf:     -1,
		PipeBuf:    -1,
		FifoPath:   defaultFifoPath,
		SocketPath: defaultSocketPath,
		Port:       defaultPort,
	}

	if p.File != "" {
		fc, err := loadFile(p.File)
		if err != nil {
			return cfg, err
		}
		applyFile(&p, &cfg, fc)
	}

	if p.LoopMode && p.ChunkMode {
		return cfg, fmt.Errorf("choose one of loop mode (-l) or chunk mode (-c)")
	}
	if p.ChunkMode {
		cfg.Mode = domain.ModeChunk
	}

	variant, err := parseVariant(p.Variant)
	if err != nil {
		return cfg, err
	}
	cfg.Variant = variant

	if err := applySockSpec(&cfg, p.SockSpec); err != nil {
		return cfg, err
	}

	if p.PipeBuf >= 0 {
		if cfg.Variant != domain.VariantPipe {
			return cfg, fmt.Errorf("setting the pipe size only makes sense with -t pipe")
		}
		if p.PipeBuf < 1 {
			return cfg, fmt.Errorf("pipe size must be >= 1")
		}
		cfg.PipeBuf = p.PipeBuf
	}

	sock := cfg.Variant == domain.VariantSocket || cfg.Variant == domain.VariantSocketPair
	if (p.RcvBuf >= 0 || p.SndBuf >= 0) && !sock {
		return cfg, fmt.Errorf("buffer sizes only make sense with -t socket or -t socketpair")
	}
	if p.RcvBuf >= 0 {
		if p.RcvBuf < 1 {
			return cfg, fmt.Errorf("receive buffer size must be >= 1")
		}
		cfg.RcvBuf = p.RcvBuf
	}
	if p.SndBuf >= 0 {
		if p.SndBuf < 1 {
			return cfg, fmt.Errorf("send buffer size must be >= 1")
		}
		cfg.SndBuf = p.SndBuf
	}

	if p.Chunk1 >= 0 {
		cfg.Chunk1 = p.Chunk1
	} else if p.Chunk1 < -1 {
		return cfg, fmt.Errorf("chunk size must be >= 0")
	}
	if p.Chunk2 >= 0 {
		cfg.Chunk2 = p.Chunk2
	} else if p.Chunk2 < -1 {
		return cfg, fmt.Errorf("second chunk size must be >= 0")
	}
	if p.NumChunks >= 0 {
		cfg.NumChunks = p.NumChunks
	} else if p.NumChunks < -1 {
		return cfg, fmt.Errorf("chunk count must be >= 0")
	}

	cfg.Quiet = p.Quiet
	return cfg, nil
}

func parseVariant(s string) (domain.Variant, error) {
	switch strings.ToLower(s) {
	case "", "pipe":
		return domain.VariantPipe, nil
	case "fifo":
		return domain.VariantFifo, nil
	case "socket":
		return domain.VariantSocket, nil
	case "socketpair":
		return domain.VariantSocketPair, nil
	}
	return 0, fmt.Errorf("unknown IPC type %q (use fifo, pipe, socket, or socketpair)", s)
}

// applySockSpec parses "[inet[6]-]dgram|stream" into domain and type.
func applySockSpec(cfg *domain.RunConfig, spec string) error {
	if spec == "" {
		return nil
	}
	sock := cfg.Variant == domain.VariantSocket || cfg.Variant == domain.VariantSocketPair
	if !sock {
		return fmt.Errorf("setting the socket type only makes sense with -t socket or -t socketpair")
	}

	rest := strings.ToLower(spec)
	switch {
	case strings.HasPrefix(rest, "inet6-"):
		cfg.Domain = domain.DomainInet6
		rest = strings.TrimPrefix(rest, "inet6-")
	case strings.HasPrefix(rest, "inet-"):
		cfg.Domain = domain.DomainInet
		rest = strings.TrimPrefix(rest, "inet-")
	}
	if cfg.Domain != domain.DomainLocal && cfg.Variant != domain.VariantSocket {
		return fmt.Errorf("inet/inet6 type sockets can only be specified with -t socket")
	}

	switch rest {
	case "dgram":
		cfg.Type = domain.TypeDgram
	case "stream":
		cfg.Type = domain.TypeStream
	default:
		return fmt.Errorf("invalid socket type %q (use [inet[6]-]dgram or [inet[6]-]stream)", spec)
	}
	return nil
}

func loadFile(path string) (fileConfig, error) {
	var fc fileConfig
	fc.PipeBuf, fc.RcvBuf, fc.SndBuf = -1, -1, -1
	fc.Chunks = -1
	f, err := os.Open(path)
	if err != nil {
		return fc, fmt.Errorf("read config: %w", err)
	}
	defer f.Close()

	dec := toml.NewDecoder(f)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&fc); err != nil {
		return fc, fmt.Errorf("parse config %s: %w", path, err)
	}
	return fc, nil
}

// applyFile fills parameters the command line left unset.
func applyFile(p *Params, cfg *domain.RunConfig, fc fileConfig) {
	if p.Variant == "" {
		p.Variant = fc.Variant
	}
	if p.SockSpec == "" {
		p.SockSpec = fc.Socket
	}
	if !p.LoopMode && !p.ChunkMode && fc.Mode == "chunk" {
		p.ChunkMode = true
	}
	if p.NumChunks < 0 && fc.Chunks >= 0 {
		p.NumChunks = fc.Chunks
	}
	if !p.Quiet && fc.Quiet {
		p.Quiet = true
	}
	if p.PipeBuf < 0 && fc.PipeBuf >= 0 {
		p.PipeBuf = fc.PipeBuf
	}
	if p.RcvBuf < 0 && fc.RcvBuf >= 0 {
		p.RcvBuf = fc.RcvBuf
	}
	if p.SndBuf < 0 && fc.SndBuf >= 0 {
		p.SndBuf = fc.SndBuf
	}
	if fc.FifoPath != "" {
		cfg.FifoPath = fc.FifoPath
	}
	if fc.SocketPath != "" {
		cfg.SocketPath = fc.SocketPath
	}
	if fc.Port > 0 {
		cfg.Port = fc.Port
	}
}
