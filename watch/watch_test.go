package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/teranos/forge/errors"
)

type recorder struct {
	calls atomic.Int32
	done  chan struct{}
	err   error
}

func newRecorder() *recorder {
	return &recorder{done: make(chan struct{}, 16)}
}

func (r *recorder) render(context.Context) error {
	r.calls.Add(1)
	r.done <- struct{}{}
	return r.err
}

func (r *recorder) wait(t *testing.T) {
	t.Helper()
	select {
	case <-r.done:
	case <-time.After(5 * time.Second):
		t.Fatal("render was not called")
	}
}

func start(t *testing.T, w *Watcher) (context.CancelFunc, <-chan error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- w.Run(ctx) }()
	t.Cleanup(cancel)
	return cancel, errc
}

func writeSpec(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestInitialRenderThenChange(t *testing.T) {
	specPath := filepath.Join(t.TempDir(), "app.json")
	writeSpec(t, specPath, `{"v": 1}`)

	rec := newRecorder()
	w := New(specPath, rec.render, WithDebounce(20*time.Millisecond), WithMaxRendersPerMinute(0), WithLogger(zap.NewNop().Sugar()))
	cancel, errc := start(t, w)

	rec.wait(t)
	assert.EqualValues(t, 1, rec.calls.Load())

	writeSpec(t, specPath, `{"v": 2}`)
	rec.wait(t)
	assert.GreaterOrEqual(t, rec.calls.Load(), int32(2))

	cancel()
	select {
	case err := <-errc:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop on cancellation")
	}
}

func TestBurstOfWritesIsDebounced(t *testing.T) {
	specPath := filepath.Join(t.TempDir(), "app.json")
	writeSpec(t, specPath, `{}`)

	rec := newRecorder()
	w := New(specPath, rec.render,
		WithInitialRender(false),
		WithDebounce(200*time.Millisecond),
		WithMaxRendersPerMinute(0),
		WithLogger(zap.NewNop().Sugar()))
	start(t, w)

	// give the watch time to be established
	time.Sleep(100 * time.Millisecond)
	for i := 0; i < 5; i++ {
		writeSpec(t, specPath, `{"i": `+string(rune('0'+i))+`}`)
		time.Sleep(10 * time.Millisecond)
	}
	rec.wait(t)
	time.Sleep(400 * time.Millisecond)
	assert.EqualValues(t, 1, rec.calls.Load())
}

func TestOtherFilesAreIgnored(t *testing.T) {
	dir := t.TempDir()
	specPath := filepath.Join(dir, "app.json")
	writeSpec(t, specPath, `{}`)

	rec := newRecorder()
	w := New(specPath, rec.render, WithInitialRender(false), WithDebounce(10*time.Millisecond), WithLogger(zap.NewNop().Sugar()))
	start(t, w)

	time.Sleep(100 * time.Millisecond)
	writeSpec(t, filepath.Join(dir, "notes.txt"), "hello")
	time.Sleep(200 * time.Millisecond)
	assert.Zero(t, rec.calls.Load())
}

func TestRenderErrorsDoNotStopWatching(t *testing.T) {
	specPath := filepath.Join(t.TempDir(), "app.json")
	writeSpec(t, specPath, `{}`)

	rec := newRecorder()
	rec.err = errors.New("invalid specification")
	w := New(specPath, rec.render, WithDebounce(10*time.Millisecond), WithMaxRendersPerMinute(0), WithLogger(zap.NewNop().Sugar()))
	start(t, w)

	rec.wait(t)
	writeSpec(t, specPath, `{"fixed": true}`)
	rec.wait(t)
	assert.GreaterOrEqual(t, rec.calls.Load(), int32(2))
}

func TestRunFailsForMissingDirectory(t *testing.T) {
	w := New(filepath.Join(t.TempDir(), "gone", "app.json"), newRecorder().render, WithLogger(zap.NewNop().Sugar()))
	err := w.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to watch")
}

func TestNewLimiter(t *testing.T) {
	unlimited := newLimiter(0)
	for i := 0; i < 100; i++ {
		assert.True(t, unlimited.Allow())
	}

	capped := newLimiter(1)
	assert.True(t, capped.Allow())
	assert.False(t, capped.Allow(), "second render within a minute waits")
}
