package watcher

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func writeTemp(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, timeout time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return cond()
}

func TestDebouncer_CoalescesRapidTriggers(t *testing.T) {
	d := NewDebouncer(50 * time.Millisecond)

	var callCount atomic.Int32
	for i := 0; i < 10; i++ {
		d.Trigger(func() { callCount.Add(1) })
		time.Sleep(5 * time.Millisecond)
	}

	time.Sleep(150 * time.Millisecond)

	if count := callCount.Load(); count != 1 {
		t.Errorf("expected 1 callback invocation, got %d", count)
	}
}

func TestDebouncer_Cancel(t *testing.T) {
	d := NewDebouncer(50 * time.Millisecond)

	var called atomic.Bool
	d.Trigger(func() { called.Store(true) })
	d.Cancel()

	time.Sleep(100 * time.Millisecond)

	if called.Load() {
		t.Error("callback should not have been invoked after cancel")
	}
}

func TestDebouncer_DefaultDuration(t *testing.T) {
	d := NewDebouncer(0)
	if d.Duration() != DefaultDebounceDuration {
		t.Errorf("expected default duration %v, got %v", DefaultDebounceDuration, d.Duration())
	}
}

func TestNewWatcher_NoPaths(t *testing.T) {
	if _, err := NewWatcher(nil); !errors.Is(err, ErrNoPaths) {
		t.Errorf("expected ErrNoPaths, got %v", err)
	}
}

func TestNewWatcher_DeduplicatesPaths(t *testing.T) {
	dir := t.TempDir()
	p := writeTemp(t, dir, "assets.json", "[]")
	w, err := NewWatcher([]string{p, p, filepath.Join(dir, ".", "assets.json")})
	if err != nil {
		t.Fatal(err)
	}
	if got := len(w.Paths()); got != 1 {
		t.Errorf("expected 1 path, got %d", got)
	}
}

func TestWatcher_DetectsChangeInAnyFile(t *testing.T) {
	for _, poll := range []bool{false, true} {
		name := "fsnotify"
		if poll {
			name = "polling"
		}
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			locations := writeTemp(t, dir, "locations.json", "[]")
			assets := writeTemp(t, dir, "assets.json", "[]")

			var changes atomic.Int32
			w, err := NewWatcher([]string{locations, assets},
				WithDebounceDuration(30*time.Millisecond),
				WithPollInterval(20*time.Millisecond),
				WithForcePoll(poll),
				WithOnChange(func() { changes.Add(1) }),
			)
			if err != nil {
				t.Fatal(err)
			}
			if err := w.Start(); err != nil {
				t.Fatal(err)
			}
			defer w.Stop()

			if poll && !w.IsPolling() {
				t.Fatal("expected polling mode")
			}

			time.Sleep(50 * time.Millisecond)
			if err := os.WriteFile(assets, []byte(`[{"id":"A1","name":"Pump"}]`), 0o644); err != nil {
				t.Fatal(err)
			}

			if !waitFor(t, 2*time.Second, func() bool { return changes.Load() >= 1 }) {
				t.Error("expected change to be detected")
			}
		})
	}
}

func TestWatcher_IgnoresUnrelatedFiles(t *testing.T) {
	dir := t.TempDir()
	assets := writeTemp(t, dir, "assets.json", "[]")

	var changes atomic.Int32
	w, err := NewWatcher([]string{assets},
		WithDebounceDuration(20*time.Millisecond),
		WithOnChange(func() { changes.Add(1) }),
	)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()
	if w.IsPolling() {
		t.Skip("fsnotify unavailable")
	}

	time.Sleep(50 * time.Millisecond)
	writeTemp(t, dir, "notes.txt", "unrelated")
	time.Sleep(200 * time.Millisecond)

	if n := changes.Load(); n != 0 {
		t.Errorf("expected no change notifications, got %d", n)
	}
}

func TestWatcher_ChangedChannel(t *testing.T) {
	dir := t.TempDir()
	assets := writeTemp(t, dir, "assets.json", "[]")

	w, err := NewWatcher([]string{assets},
		WithDebounceDuration(20*time.Millisecond),
		WithPollInterval(20*time.Millisecond),
		WithForcePoll(true),
	)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	time.Sleep(50 * time.Millisecond)
	if err := os.WriteFile(assets, []byte("[ ]\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case <-w.Changed():
	case <-time.After(2 * time.Second):
		t.Error("expected a change notification on the channel")
	}
}

func TestWatcher_EnvForcePoll(t *testing.T) {
	t.Setenv(ForcePollEnvVar, "yes")

	dir := t.TempDir()
	assets := writeTemp(t, dir, "assets.json", "[]")

	w, err := NewWatcher([]string{assets}, WithPollInterval(25*time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	if !w.IsPolling() {
		t.Fatalf("expected polling mode when %s is set", ForcePollEnvVar)
	}
}

func TestWatcher_RemoteFilesystem_UsesPolling(t *testing.T) {
	dir := t.TempDir()
	assets := writeTemp(t, dir, "assets.json", "[]")

	orig := detectFilesystemTypeFunc
	detectFilesystemTypeFunc = func(string) FilesystemType { return FSTypeNFS }
	t.Cleanup(func() { detectFilesystemTypeFunc = orig })

	w, err := NewWatcher([]string{assets}, WithPollInterval(25*time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	if !w.IsPolling() {
		t.Fatal("expected watcher to use polling on remote filesystem")
	}
	if got := w.FilesystemType(); got != FSTypeNFS {
		t.Fatalf("expected filesystem type %v, got %v", FSTypeNFS, got)
	}
}

func TestWatcher_FileRemoved(t *testing.T) {
	dir := t.TempDir()
	assets := writeTemp(t, dir, "assets.json", "[]")

	var (
		errMu    sync.Mutex
		gotError error
	)
	w, err := NewWatcher([]string{assets},
		WithPollInterval(20*time.Millisecond),
		WithForcePoll(true),
		WithOnError(func(err error) {
			errMu.Lock()
			gotError = err
			errMu.Unlock()
		}),
	)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	time.Sleep(50 * time.Millisecond)
	if err := os.Remove(assets); err != nil {
		t.Fatal(err)
	}

	ok := waitFor(t, 2*time.Second, func() bool {
		errMu.Lock()
		defer errMu.Unlock()
		return errors.Is(gotError, ErrFileRemoved)
	})
	if !ok {
		t.Errorf("expected ErrFileRemoved, got %v", gotError)
	}
}

func TestWatcher_MissingFileIsWatchedForCreation(t *testing.T) {
	dir := t.TempDir()
	assets := filepath.Join(dir, "assets.json")

	var changes atomic.Int32
	var errCount atomic.Int32
	w, err := NewWatcher([]string{assets},
		WithDebounceDuration(20*time.Millisecond),
		WithPollInterval(20*time.Millisecond),
		WithForcePoll(true),
		WithOnChange(func() { changes.Add(1) }),
		WithOnError(func(error) { errCount.Add(1) }),
	)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	time.Sleep(60 * time.Millisecond)
	if n := errCount.Load(); n != 0 {
		t.Errorf("a file that never existed should not report removal, got %d errors", n)
	}

	writeTemp(t, dir, "assets.json", "[]")
	if !waitFor(t, 2*time.Second, func() bool { return changes.Load() >= 1 }) {
		t.Error("expected creation to be reported as a change")
	}
}

func TestWatcher_StartStop(t *testing.T) {
	dir := t.TempDir()
	assets := writeTemp(t, dir, "assets.json", "[]")

	w, err := NewWatcher([]string{assets})
	if err != nil {
		t.Fatal(err)
	}
	if w.IsStarted() {
		t.Error("watcher should not be started before Start")
	}
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	if err := w.Start(); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("expected ErrAlreadyStarted, got %v", err)
	}
	w.Stop()
	if w.IsStarted() {
		t.Error("watcher should be stopped")
	}
	w.Stop()

	if err := w.Start(); err != nil {
		t.Fatalf("restart failed: %v", err)
	}
	w.Stop()
}

func TestWatcher_PollInterval(t *testing.T) {
	dir := t.TempDir()
	assets := writeTemp(t, dir, "assets.json", "[]")

	w, err := NewWatcher([]string{assets})
	if err != nil {
		t.Fatal(err)
	}
	if got := w.PollInterval(); got != DefaultPollInterval {
		t.Errorf("expected default poll interval, got %v", got)
	}

	w, err = NewWatcher([]string{assets}, WithPollInterval(750*time.Millisecond), WithPollInterval(0))
	if err != nil {
		t.Fatal(err)
	}
	if got := w.PollInterval(); got != 750*time.Millisecond {
		t.Errorf("expected 750ms, got %v", got)
	}
}

func TestFilesystemType_String(t *testing.T) {
	tests := []struct {
		fsType   FilesystemType
		expected string
	}{
		{FSTypeUnknown, "unknown"},
		{FSTypeLocal, "local"},
		{FSTypeNFS, "nfs"},
		{FSTypeSMB, "smb"},
		{FSTypeSSHFS, "sshfs"},
		{FSTypeFUSE, "fuse"},
		{FilesystemType(99), "unknown"},
	}
	for _, tc := range tests {
		if got := tc.fsType.String(); got != tc.expected {
			t.Errorf("FilesystemType(%d).String() = %q, expected %q", tc.fsType, got, tc.expected)
		}
	}
}

func TestEnvBool(t *testing.T) {
	tests := []struct {
		value    string
		expected bool
	}{
		{"1", true},
		{"true", true},
		{"TRUE", true},
		{" yes ", true},
		{"y", true},
		{"on", true},
		{"0", false},
		{"false", false},
		{"no", false},
		{"", false},
		{"invalid", false},
	}
	for _, tc := range tests {
		t.Run(tc.value, func(t *testing.T) {
			t.Setenv("TEST_ENV_BOOL", tc.value)
			if got := envBool("TEST_ENV_BOOL"); got != tc.expected {
				t.Errorf("envBool(%q) = %v, expected %v", tc.value, got, tc.expected)
			}
		})
	}
}

func TestDetectFilesystemType(t *testing.T) {
	if got := DetectFilesystemType(""); got != FSTypeUnknown {
		t.Errorf("DetectFilesystemType(\"\") = %v, expected FSTypeUnknown", got)
	}
	// Non-existent paths resolve through their nearest existing ancestor.
	missing := filepath.Join(t.TempDir(), "a", "b", "assets.json")
	_ = DetectFilesystemType(missing)
}
