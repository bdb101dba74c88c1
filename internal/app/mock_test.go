package app

import (
	"fmt"

	"ipcbuf/internal/domain"
)

// mockProvisioner records the call sequence and returns configured values.
type mockProvisioner struct {
	label string
	ep    domain.Endpoints

	provisionErr error
	preReportErr error
	drainN       int
	drainErr     error

	calls        []string
	drainMinBuf  int
	teardownEp   domain.Endpoints
	tornDown     int
	preReportNum int
}

func (m *mockProvisioner) Describe() string { return m.label }

func (m *mockProvisioner) Provision() (domain.Endpoints, error) {
	m.calls = append(m.calls, "provision")
	if m.provisionErr != nil {
		return domain.Endpoints{}, m.provisionErr
	}
	return m.ep, nil
}

func (m *mockProvisioner) PreReport(ep domain.Endpoints) error {
	m.calls = append(m.calls, "prereport")
	m.preReportNum++
	return m.preReportErr
}

func (m *mockProvisioner) Drain(ep domain.Endpoints, minBuf int) (int, error) {
	m.calls = append(m.calls, "drain")
	m.drainMinBuf = minBuf
	return m.drainN, m.drainErr
}

func (m *mockProvisioner) Teardown(ep domain.Endpoints) {
	m.calls = append(m.calls, "teardown")
	m.teardownEp = ep
	m.tornDown++
}

// mockProber returns a configured result and records the probed fd.
type mockProber struct {
	res    domain.ProbeResult
	err    error
	called bool
	lastFd int
}

func (m *mockProber) Probe(fd int) (domain.ProbeResult, error) {
	m.called = true
	m.lastFd = fd
	return m.res, m.err
}

// mockReporter accumulates everything printed.
type mockReporter struct {
	out     string
	metrics map[string]int
}

func (m *mockReporter) Metric(label string, value int) {
	if m.metrics == nil {
		m.metrics = make(map[string]int)
	}
	m.metrics[label] = value
	m.out += fmt.Sprintf("%-15s: %8d\n", label, value)
}

func (m *mockReporter) Progress(wrote, wanted, total int) {
	m.out += fmt.Sprintf("progress %d/%d total %d\n", wrote, wanted, total)
}

func (m *mockReporter) Printf(format string, args ...any) {
	m.out += fmt.Sprintf(format, args...)
}

func (m *mockReporter) Final(total int) {
	m.out += fmt.Sprintf("Observed total : %8d\n\n", total)
}

// mockLogger is a no-op logger.
type mockLogger struct {
	messages []string
}

func (m *mockLogger) Info(msg string, args ...any)  { m.messages = append(m.messages, msg) }
func (m *mockLogger) Error(msg string, args ...any) { m.messages = append(m.messages, "ERROR: "+msg) }
