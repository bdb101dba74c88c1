package drain

import (
	"io"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"ipcbuf/internal/adapter/report"
)

func quietEngine() *Engine {
	return New(report.NewConsole(io.Discard, true))
}

func TestDrainRecoversPipeContents(t *testing.T) {
	var fds [2]int
	require.NoError(t, unix.Pipe(fds[:]))
	defer unix.Close(fds[0])

	payload := make([]byte, 3000)
	_, err := unix.Write(fds[1], payload)
	require.NoError(t, err)
	require.NoError(t, unix.Close(fds[1]))

	n, err := quietEngine().Drain(fds[0], 0)
	require.NoError(t, err)
	require.Equal(t, len(payload), n)
}

func TestDrainStopsOnWouldBlock(t *testing.T) {
	var fds [2]int
	require.NoError(t, unix.Pipe(fds[:]))
	defer unix.Close(fds[0])
	defer unix.Close(fds[1])

	_, err := unix.Write(fds[1], []byte("abc"))
	require.NoError(t, err)

	// Write side stays open: the drain must stop on EAGAIN, not hang.
	n, err := quietEngine().Drain(fds[0], 0)
	require.NoError(t, err)
	require.Equal(t, 3, n)
}

func TestDrainEmptySocketpair(t *testing.T) {
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_DGRAM, 0)
	require.NoError(t, err)
	defer unix.Close(fds[0])
	defer unix.Close(fds[1])

	n, err := quietEngine().Drain(fds[0], 0)
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestDrainBufferCoversLargestChunk(t *testing.T) {
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_DGRAM, 0)
	require.NoError(t, err)
	defer unix.Close(fds[0])
	defer unix.Close(fds[1])

	// A datagram bigger than the default buffer must come back whole.
	payload := make([]byte, defaultBufSize+4096)
	_, err = unix.Write(fds[1], payload)
	require.NoError(t, err)

	n, err := quietEngine().Drain(fds[0], len(payload))
	require.NoError(t, err)
	require.Equal(t, len(payload), n)
}

func TestDrainFatalOnUnexpectedError(t *testing.T) {
	var fds [2]int
	require.NoError(t, unix.Pipe(fds[:]))
	defer unix.Close(fds[0])
	defer unix.Close(fds[1])

	_, err := unix.Write(fds[1], []byte("x"))
	require.NoError(t, err)

	e := quietEngine()
	e.read = func(int, []byte) (int, error) { return 0, unix.EIO }

	_, err = e.Drain(fds[0], 0)
	require.Error(t, err)
	require.ErrorIs(t, err, unix.EIO)
}
