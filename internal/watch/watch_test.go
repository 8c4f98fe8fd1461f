package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/orizon-lang/arith/internal/testrunner/assert"
)

func TestWatcherDeliversNewContent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "calc.txt")
	if err := os.WriteFile(path, []byte("1 + 1"), 0o644); err != nil {
		t.Fatal(err)
	}

	w, err := New([]string{path}, WithDebounce(10*time.Millisecond))
	if err != nil {
		t.Skip("fsnotify not supported: ", err)
	}
	defer w.Close()

	var (
		mu   sync.Mutex
		seen []string
	)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- w.Run(ctx, func(_ context.Context, p, source string) {
			mu.Lock()
			defer mu.Unlock()
			seen = append(seen, source)
		})
	}()

	// an unrelated file in the same directory is ignored
	if err := os.WriteFile(filepath.Join(dir, "other.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("2 * 21"), 0o644); err != nil {
		t.Fatal(err)
	}

	ok := assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) > 0 && seen[len(seen)-1] == "2 * 21"
	}, 3*time.Second, 10*time.Millisecond)
	if !ok {
		return
	}

	mu.Lock()
	for _, s := range seen {
		if s == "x" {
			t.Errorf("handler ran for an unwatched file")
		}
	}
	mu.Unlock()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}
}

func TestNewRejectsMissingAndDirectories(t *testing.T) {
	dir := t.TempDir()

	_, err := New([]string{filepath.Join(dir, "absent.txt")})
	assert.Error(t, err)

	_, err = New([]string{dir})
	assert.Error(t, err)
}

func TestFilesAreAbsolute(t *testing.T) {
	path := filepath.Join(t.TempDir(), "calc.txt")
	if err := os.WriteFile(path, []byte("1"), 0o644); err != nil {
		t.Fatal(err)
	}
	w, err := New([]string{path})
	if err != nil {
		t.Skip("fsnotify not supported: ", err)
	}
	defer w.Close()

	files := w.Files()
	if assert.Len(t, files, 1) {
		assert.True(t, filepath.IsAbs(files[0]))
	}
}

func receive(t *testing.T, d *debouncer) fired {
	t.Helper()
	select {
	case f := <-d.ready:
		return f
	case <-time.After(2 * time.Second):
		t.Fatal("debounce timer never fired")
	}
	return fired{}
}

func TestDebouncerDropsStaleFire(t *testing.T) {
	d := newDebouncer(5 * time.Millisecond)
	defer d.stop()

	d.touch("calc.txt")
	// let the first timer fire and block on the unread channel
	time.Sleep(50 * time.Millisecond)
	d.touch("calc.txt")

	accepted := 0
	for i := 0; i < 2; i++ {
		if d.accept(receive(t, d)) {
			accepted++
		}
	}
	assert.Equal(t, accepted, 1)

	select {
	case f := <-d.ready:
		t.Fatalf("unexpected extra delivery %+v", f)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestDebouncerStopReleasesFiredTimers(t *testing.T) {
	d := newDebouncer(time.Millisecond)
	d.touch("a.calc")
	d.touch("b.calc")
	time.Sleep(20 * time.Millisecond)

	stopped := make(chan struct{})
	go func() {
		d.stop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("stop did not return; a fired timer is stuck")
	}
}
