package ocr

import (
	"context"
	"io"
	"log/slog"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecRunner(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("needs sh")
	}
	r := newExecRunner(slog.New(slog.NewTextHandler(io.Discard, nil)))

	out, _, err := r.Run(context.Background(), "sh", "-c", "printf %s \"$OMP_THREAD_LIMIT\"")
	require.NoError(t, err)
	assert.Equal(t, "1", string(out))

	_, errb, err := r.Run(context.Background(), "sh", "-c", "echo bad image >&2; exit 3")
	require.Error(t, err)
	assert.Equal(t, 3, exitCode(err))
	assert.Equal(t, "bad image\n", string(errb))
}

func TestExecRunner_KilledOnDeadline(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("needs sh")
	}
	r := newExecRunner(slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, _, err := r.Run(ctx, "sh", "-c", "sleep 10")
	require.Error(t, err)
	assert.Equal(t, -1, exitCode(err))
	assert.Less(t, time.Since(start), 5*time.Second)
}
