package daemon

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/catalogbuilder/internal/build/report"
	ferrors "git.home.luguber.info/inful/catalogbuilder/internal/foundation/errors"
)

type fakeRunner struct {
	calls atomic.Int64
	block chan struct{}
	err   error

	once    sync.Once
	started chan struct{}
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{started: make(chan struct{})}
}

func (f *fakeRunner) Run(ctx context.Context, _ bool) (*report.Report, error) {
	f.calls.Add(1)
	f.once.Do(func() { close(f.started) })
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return report.New("b"), nil
}

func runDaemon(t *testing.T, d *Daemon) (cancel func(), done <-chan error) {
	t.Helper()
	ctx, cancelFn := context.WithCancel(context.Background())
	ch := make(chan error, 1)
	go func() { ch <- d.Run(ctx) }()
	t.Cleanup(cancelFn)
	return cancelFn, ch
}

func TestNewValidatesOptions(t *testing.T) {
	_, err := New(Options{})
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryValidation))

	_, err = New(Options{Runner: newFakeRunner(), Watch: true})
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryValidation))

	_, err = New(Options{Runner: newFakeRunner(), Interval: -time.Second})
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryValidation))
}

func TestDaemonBuildsAtStartupAndStops(t *testing.T) {
	runner := newFakeRunner()
	d, err := New(Options{Runner: runner})
	require.NoError(t, err)

	cancel, done := runDaemon(t, d)
	assert.Eventually(t, func() bool { return d.Builds() == 1 }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		require.FailNow(t, "daemon did not stop")
	}
}

func TestDaemonCoalescesTriggersDuringBuild(t *testing.T) {
	runner := newFakeRunner()
	runner.block = make(chan struct{})
	d, err := New(Options{Runner: runner})
	require.NoError(t, err)
	runDaemon(t, d)

	<-runner.started
	d.Trigger(TriggerManual)
	d.Trigger(TriggerManual)
	d.Trigger(TriggerManual)
	close(runner.block)

	assert.Eventually(t, func() bool { return runner.calls.Load() == 2 }, time.Second, 5*time.Millisecond)
	assert.Never(t, func() bool { return runner.calls.Load() > 2 }, 100*time.Millisecond, 10*time.Millisecond)
}

func TestDaemonKeepsRunningAfterFailedBuild(t *testing.T) {
	runner := newFakeRunner()
	runner.err = errors.New("boom")
	d, err := New(Options{Runner: runner})
	require.NoError(t, err)
	runDaemon(t, d)

	assert.Eventually(t, func() bool { return d.Builds() == 1 }, time.Second, 5*time.Millisecond)
	d.Trigger(TriggerManual)
	assert.Eventually(t, func() bool { return d.Builds() == 2 }, time.Second, 5*time.Millisecond)
}

func TestDaemonScheduledBuilds(t *testing.T) {
	runner := newFakeRunner()
	d, err := New(Options{Runner: runner, Interval: 50 * time.Millisecond})
	require.NoError(t, err)
	runDaemon(t, d)

	assert.Eventually(t, func() bool { return d.Builds() >= 3 }, 3*time.Second, 10*time.Millisecond)
}

func TestDaemonRebuildsOnSourceChange(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "zola"), 0o750))

	runner := newFakeRunner()
	d, err := New(Options{Runner: runner, Watch: true, SourceDir: dir, Debounce: 20 * time.Millisecond})
	require.NoError(t, err)
	runDaemon(t, d)
	assert.Eventually(t, func() bool { return d.Builds() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "zola", "nana.md"), []byte("# Nana\n"), 0o600))

	assert.Eventually(t, func() bool { return d.Builds() >= 2 }, 3*time.Second, 10*time.Millisecond)
}

func TestWatcherRelevance(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "catalog"), 0o750))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "zola"), 0o750))

	w, err := NewWatcher(WatcherOptions{Root: dir, Exclude: []string{filepath.Join(dir, "catalog")}})
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })

	cases := []struct {
		name string
		ev   fsnotify.Event
		want bool
	}{
		{"markdown write", fsnotify.Event{Name: filepath.Join(dir, "zola", "a.md"), Op: fsnotify.Write}, true},
		{"other extension", fsnotify.Event{Name: filepath.Join(dir, "zola", "a.txt"), Op: fsnotify.Write}, false},
		{"chmod", fsnotify.Event{Name: filepath.Join(dir, "zola", "a.md"), Op: fsnotify.Chmod}, false},
		{"hidden file", fsnotify.Event{Name: filepath.Join(dir, "zola", ".a.md"), Op: fsnotify.Write}, false},
		{"excluded tree", fsnotify.Event{Name: filepath.Join(dir, "catalog", "x.md"), Op: fsnotify.Create}, false},
		{"ignore marker", fsnotify.Event{Name: filepath.Join(dir, "zola", ".catalogignore"), Op: fsnotify.Create}, true},
		{"new directory", fsnotify.Event{Name: filepath.Join(dir, "zola"), Op: fsnotify.Create}, true},
		{"removed directory", fsnotify.Event{Name: filepath.Join(dir, "voltaire"), Op: fsnotify.Remove}, true},
		{"removed source", fsnotify.Event{Name: filepath.Join(dir, "a.md"), Op: fsnotify.Rename}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, w.relevant(tc.ev))
		})
	}
}
