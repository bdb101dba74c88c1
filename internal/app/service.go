// Package app wires the ports together and drives a single
// measurement run from provisioning through drain and teardown.
package app

import (
	"fmt"

	"ipcbuf/internal/domain"
)

// Service orchestrates one buffer measurement.
type Service struct {
	cfg    domain.RunConfig
	prov   domain.Provisioner
	prober domain.Prober
	rep    domain.Reporter
	log    domain.Logger
}

// NewService creates the application service with all dependencies injected.
func NewService(
	cfg domain.RunConfig,
	prov domain.Provisioner,
	prober domain.Prober,
	rep domain.Reporter,
	log domain.Logger,
) *Service {
	return &Service{
		cfg:    cfg,
		prov:   prov,
		prober: prober,
		rep:    rep,
		log:    log,
	}
}

// Run performs the measurement: provision the channel, report its
// kernel parameters, fill it, then recover and count what the kernel
// buffered. Teardown runs on every path once the channel exists.
func (s *Service) Run() error {
	s.describeRun()
	s.log.Info("starting run",
		"channel", s.prov.Describe(), "mode", s.cfg.Mode.String())

	ep, err := s.prov.Provision()
	if err != nil {
		return err
	}
	defer s.prov.Teardown(ep)

	if err := s.prov.PreReport(ep); err != nil {
		return err
	}

	res, err := s.prober.Probe(ep.W)
	if err != nil {
		return err
	}

	drained, err := s.prov.Drain(ep, res.Largest)
	if err != nil {
		return fmt.Errorf("drain: %w", err)
	}
	s.rep.Metric("Read", drained)

	s.log.Info("run complete",
		"wrote", res.Total, "read", drained, "iterations", res.Iterations)
	return nil
}

// describeRun prints the test header. The reporter suppresses it in
// quiet mode.
func (s *Service) describeRun() {
	s.rep.Printf("Testing %s buffer size in %s mode.\n",
		s.prov.Describe(), s.cfg.Mode)

	if s.cfg.Mode == domain.ModeLoop {
		s.rep.Printf("Loop starting with %d byte%s",
			s.cfg.Chunk1, plural(s.cfg.Chunk1 > 1))
		if s.cfg.Chunk2 < 0 {
			s.rep.Printf(" and doubling each iteration.\n")
		} else {
			s.rep.Printf(", increasing by %d byte%s each time.\n",
				s.cfg.Chunk2, plural(s.cfg.Chunk2 != 1))
		}
	} else {
		c2 := s.cfg.Chunk2
		if c2 < 0 {
			c2 = s.cfg.Chunk1
		}
		s.rep.Printf("First chunk: %d byte%s, ",
			s.cfg.Chunk1, plural(s.cfg.Chunk1 > 1))
		s.rep.Printf("then %d more chunk%s of size %d.\n",
			s.cfg.NumChunks, plural(s.cfg.NumChunks > 1), c2)
	}
	s.rep.Printf("\n")
}

func plural(p bool) string {
	if p {
		return "s"
	}
	return ""
}
