package probe

import (
	"io"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"ipcbuf/internal/adapter/drain"
	"ipcbuf/internal/adapter/report"
	"ipcbuf/internal/domain"
)

type nopLogger struct{}

func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

func quietEngine(cfg domain.RunConfig) *Engine {
	return New(cfg, report.NewConsole(io.Discard, true), nopLogger{})
}

// fakeChannel accepts writes until capacity is exhausted, then
// reports EAGAIN, like a kernel buffer with no reader.
type fakeChannel struct {
	capacity int
	used     int
	maxCall  int // per-call ceiling; 0 means none
	sizes    []int
}

func (f *fakeChannel) write(_ int, p []byte) (int, error) {
	if f.maxCall > 0 && len(p) > f.maxCall {
		return 0, unix.EMSGSIZE
	}
	if f.used+len(p) > f.capacity {
		if left := f.capacity - f.used; left > 0 && f.maxCall == 0 {
			// Stream-like partial acceptance.
			f.used = f.capacity
			f.sizes = append(f.sizes, left)
			return left, nil
		}
		return 0, unix.EAGAIN
	}
	f.used += len(p)
	f.sizes = append(f.sizes, len(p))
	return len(p), nil
}

func TestLoopModeDoublesUntilFull(t *testing.T) {
	ch := &fakeChannel{capacity: 100}
	e := quietEngine(domain.RunConfig{Mode: domain.ModeLoop, Chunk1: 1, Chunk2: -1})
	e.write = ch.write

	var fds [2]int
	require.NoError(t, unix.Pipe(fds[:]))
	defer unix.Close(fds[0])
	defer unix.Close(fds[1])

	res, err := e.Probe(fds[1])
	require.NoError(t, err)

	// 1+2+4+8+16+32 = 63 accepted in full, then 64 is cut to 37.
	require.Equal(t, []int{1, 2, 4, 8, 16, 32, 37}, ch.sizes)
	require.Equal(t, 100, res.Total)
	require.Equal(t, 37, res.Largest)
	require.Equal(t, 7, res.Iterations)
}

func TestLoopModeAdditiveIncrement(t *testing.T) {
	ch := &fakeChannel{capacity: 60, maxCall: 1 << 20}
	e := quietEngine(domain.RunConfig{Mode: domain.ModeLoop, Chunk1: 10, Chunk2: 10})
	e.write = ch.write

	var fds [2]int
	require.NoError(t, unix.Pipe(fds[:]))
	defer unix.Close(fds[0])
	defer unix.Close(fds[1])

	res, err := e.Probe(fds[1])
	require.NoError(t, err)

	// 10+20+30 = 60 fill the channel exactly; 40 gets EAGAIN.
	require.Equal(t, []int{10, 20, 30}, ch.sizes)
	require.Equal(t, 60, res.Total)
	require.Equal(t, 3, res.Iterations)
}

func TestLoopModeMonotonicAccounting(t *testing.T) {
	ch := &fakeChannel{capacity: 1 << 16, maxCall: 1 << 20}
	e := quietEngine(domain.RunConfig{Mode: domain.ModeLoop, Chunk1: 1, Chunk2: -1})
	e.write = ch.write

	var fds [2]int
	require.NoError(t, unix.Pipe(fds[:]))
	defer unix.Close(fds[0])
	defer unix.Close(fds[1])

	res, err := e.Probe(fds[1])
	require.NoError(t, err)

	sum := 0
	for i, s := range ch.sizes {
		if i > 0 {
			require.GreaterOrEqual(t, s, ch.sizes[i-1])
		}
		sum += s
	}
	require.Equal(t, sum, res.Total)
}

func TestChunkModeFixedSequence(t *testing.T) {
	ch := &fakeChannel{capacity: 1 << 20, maxCall: 1 << 20}
	e := quietEngine(domain.RunConfig{Mode: domain.ModeChunk, Chunk1: 100, Chunk2: 200, NumChunks: 5})
	e.write = ch.write

	var fds [2]int
	require.NoError(t, unix.Pipe(fds[:]))
	defer unix.Close(fds[0])
	defer unix.Close(fds[1])

	res, err := e.Probe(fds[1])
	require.NoError(t, err)

	require.Equal(t, []int{100, 200, 200, 200, 200, 200}, ch.sizes)
	require.Equal(t, 1100, res.Total)
	require.Equal(t, 200, res.Largest)
}

func TestChunkModeSecondSizeDefaultsToFirst(t *testing.T) {
	ch := &fakeChannel{capacity: 1 << 20, maxCall: 1 << 20}
	e := quietEngine(domain.RunConfig{Mode: domain.ModeChunk, Chunk1: 50, Chunk2: -1, NumChunks: 3})
	e.write = ch.write

	var fds [2]int
	require.NoError(t, unix.Pipe(fds[:]))
	defer unix.Close(fds[0])
	defer unix.Close(fds[1])

	res, err := e.Probe(fds[1])
	require.NoError(t, err)

	// The initial write counts as the first of the three chunks.
	require.Equal(t, []int{50, 50, 50}, ch.sizes)
	require.Equal(t, 150, res.Total)
}

func TestChunkModeKeepsGoingPastFull(t *testing.T) {
	ch := &fakeChannel{capacity: 250}
	e := quietEngine(domain.RunConfig{Mode: domain.ModeChunk, Chunk1: 100, Chunk2: 100, NumChunks: 4})
	e.write = ch.write

	var fds [2]int
	require.NoError(t, unix.Pipe(fds[:]))
	defer unix.Close(fds[0])
	defer unix.Close(fds[1])

	res, err := e.Probe(fds[1])
	require.NoError(t, err)

	// Third and later writes bounce off the full channel but the
	// burst still issues all five attempts; only accepted bytes count.
	require.Equal(t, []int{100, 100, 50}, ch.sizes)
	require.Equal(t, 250, res.Total)
}

func TestShrinkOnMessageTooLarge(t *testing.T) {
	ch := &fakeChannel{capacity: 1 << 20, maxCall: 7}
	e := quietEngine(domain.RunConfig{Mode: domain.ModeChunk, Chunk1: 100, Chunk2: -1, NumChunks: 1})
	e.write = ch.write

	var fds [2]int
	require.NoError(t, unix.Pipe(fds[:]))
	defer unix.Close(fds[0])
	defer unix.Close(fds[1])

	res, err := e.Probe(fds[1])
	require.NoError(t, err)

	// 100 shrinks byte by byte until the 7-byte ceiling admits it.
	require.Equal(t, []int{7}, ch.sizes)
	require.Equal(t, 7, res.Total)
	require.Equal(t, 7, res.Largest)
}

func TestShrinkToZeroStopsCleanly(t *testing.T) {
	e := quietEngine(domain.RunConfig{Mode: domain.ModeLoop, Chunk1: 10, Chunk2: -1})
	e.write = func(int, []byte) (int, error) { return 0, unix.ENOBUFS }

	var fds [2]int
	require.NoError(t, unix.Pipe(fds[:]))
	defer unix.Close(fds[0])
	defer unix.Close(fds[1])

	res, err := e.Probe(fds[1])
	require.NoError(t, err)
	require.Zero(t, res.Total)
	require.Zero(t, res.Iterations)
}

func TestUnexpectedErrnoIsFatal(t *testing.T) {
	e := quietEngine(domain.RunConfig{Mode: domain.ModeLoop, Chunk1: 1, Chunk2: -1})
	e.write = func(int, []byte) (int, error) { return 0, unix.EPIPE }

	var fds [2]int
	require.NoError(t, unix.Pipe(fds[:]))
	defer unix.Close(fds[0])
	defer unix.Close(fds[1])

	_, err := e.Probe(fds[1])
	require.Error(t, err)
	require.ErrorIs(t, err, unix.EPIPE)
}

func TestZeroByteProbeTerminates(t *testing.T) {
	e := quietEngine(domain.RunConfig{Mode: domain.ModeLoop, Chunk1: 0, Chunk2: -1})

	var fds [2]int
	require.NoError(t, unix.Pipe(fds[:]))
	defer unix.Close(fds[0])
	defer unix.Close(fds[1])

	res, err := e.Probe(fds[1])
	require.NoError(t, err)
	require.GreaterOrEqual(t, res.Total, 0)
}

// TestPipeLoopAgainstKernel runs the real loop strategy against a
// real pipe and drains it back.
func TestPipeLoopAgainstKernel(t *testing.T) {
	var fds [2]int
	require.NoError(t, unix.Pipe(fds[:]))
	defer unix.Close(fds[0])

	e := quietEngine(domain.RunConfig{Mode: domain.ModeLoop, Chunk1: 1, Chunk2: -1})
	res, err := e.Probe(fds[1])
	require.NoError(t, err)
	require.Positive(t, res.Total)
	require.NoError(t, unix.Close(fds[1]))

	d := drain.New(report.NewConsole(io.Discard, true))
	got, err := d.Drain(fds[0], res.Largest)
	require.NoError(t, err)
	require.Equal(t, res.Total, got)
}

// TestSocketpairDgramAgainstKernel mirrors the socketpair scenario:
// chunk mode never fabricates bytes the kernel refused.
func TestSocketpairDgramAgainstKernel(t *testing.T) {
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_DGRAM, 0)
	require.NoError(t, err)
	defer unix.Close(fds[0])
	defer unix.Close(fds[1])

	e := quietEngine(domain.RunConfig{Mode: domain.ModeChunk, Chunk1: 100, Chunk2: 200, NumChunks: 5})
	res, err := e.Probe(fds[1])
	require.NoError(t, err)
	require.LessOrEqual(t, res.Total, 100+5*200)

	d := drain.New(report.NewConsole(io.Discard, true))
	got, err := d.Drain(fds[0], res.Largest)
	require.NoError(t, err)
	require.LessOrEqual(t, got, res.Total)
}
