package ops

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sdejongh/filenorris/pkg/config"
	"github.com/sdejongh/filenorris/pkg/logging"
	"github.com/sdejongh/filenorris/pkg/models"
	"github.com/sdejongh/filenorris/pkg/storage"
)

func newTestRegistry(t *testing.T, cfg *config.Config) (*Registry, string) {
	t.Helper()
	dir, err := os.MkdirTemp("", "filenorris-registry-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })

	trash, err := storage.NewLocalTrash(filepath.Join(dir, ".trash"))
	if err != nil {
		t.Fatalf("failed to create trash: %v", err)
	}

	reg, err := New(Options{
		Trash:    trash,
		Launcher: &recordingLauncher{},
		Logger:   logging.NewNullLogger(),
		Config:   cfg,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { reg.Close() })
	return reg, dir
}

func TestRegistry_SubmitWaitCompleted(t *testing.T) {
	reg, dir := newTestRegistry(t, nil)

	src := filepath.Join(dir, "src", "a.txt")
	write(t, src, "a")
	dst := filepath.Join(dir, "dst")
	if err := os.MkdirAll(dst, 0755); err != nil {
		t.Fatal(err)
	}

	id, err := reg.Submit(models.NewCopy([]string{src}, dst))
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if id != 1 {
		t.Errorf("first id = %d, want 1", id)
	}
	reg.Wait(id)

	completed := reg.Completed()
	if len(completed) != 1 {
		t.Fatalf("Completed() has %d entries, want 1", len(completed))
	}
	c := completed[0]
	if c.ID != id || c.Cancelled {
		t.Errorf("completed entry = %+v, want id %d and not cancelled", c, id)
	}
	want := filepath.Join(dst, "a.txt")
	if len(c.Selection.Selected) != 1 || c.Selection.Selected[0] != want {
		t.Errorf("Selected = %v, want [%s]", c.Selection.Selected, want)
	}
	if len(reg.Pending()) != 0 || len(reg.Failed()) != 0 {
		t.Error("a terminated id must live in exactly one collection")
	}
}

func TestRegistry_MonotonicIDs(t *testing.T) {
	reg, dir := newTestRegistry(t, nil)

	for i, want := range []models.OperationID{1, 2, 3} {
		path := filepath.Join(dir, "folder", string(rune('a'+i)))
		id, err := reg.Submit(models.NewFolder(path))
		if err != nil {
			t.Fatalf("Submit() error = %v", err)
		}
		if id != want {
			t.Errorf("Submit() id = %d, want %d", id, want)
		}
		reg.Wait(id)
	}
}

func TestRegistry_SubmitRejectsInvalid(t *testing.T) {
	reg, _ := newTestRegistry(t, nil)

	if _, err := reg.Submit(models.NewCopy(nil, "/tmp/somewhere")); err == nil {
		t.Error("Submit() should reject a copy with no sources")
	}
	if len(reg.Pending())+len(reg.Completed())+len(reg.Failed()) != 0 {
		t.Error("rejected submissions must not enter any collection")
	}
}

func TestRegistry_ConflictFlow(t *testing.T) {
	reg, dir := newTestRegistry(t, nil)

	src := filepath.Join(dir, "src", "a.txt")
	write(t, src, "incoming")
	dst := filepath.Join(dir, "dst")
	write(t, filepath.Join(dst, "a.txt"), "existing")

	id, err := reg.Submit(models.NewCopy([]string{src}, dst))
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	requests, ok := reg.Conflicts(id)
	if !ok {
		t.Fatal("Conflicts() should find the pending operation")
	}

	var req models.ConflictRequest
	select {
	case req = <-requests:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for the conflict request")
	}
	if req.Source != src || req.Dest != filepath.Join(dst, "a.txt") {
		t.Errorf("request = %+v, want source %s dest %s", req, src, filepath.Join(dst, "a.txt"))
	}
	if req.MoreConflicts {
		t.Error("MoreConflicts should be false for the last item")
	}

	if progress, state, ok := reg.Progress(id); !ok || progress != 0 || state != "Waiting for conflict decision" {
		t.Errorf("Progress() = (%f, %q, %t) while blocked on the dialog", progress, state, ok)
	}

	if !reg.Resolve(id, models.ConflictResponse{Choice: models.ChoiceKeepBoth}) {
		t.Fatal("Resolve() should find the pending operation")
	}
	reg.Wait(id)

	completed := reg.Completed()
	if len(completed) != 1 {
		t.Fatalf("Completed() has %d entries, want 1", len(completed))
	}
	want := filepath.Join(dst, "a (1).txt")
	if len(completed[0].Selection.Selected) != 1 || completed[0].Selection.Selected[0] != want {
		t.Errorf("Selected = %v, want [%s]", completed[0].Selection.Selected, want)
	}
}

func TestRegistry_CancelWhileWaitingOnConflict(t *testing.T) {
	reg, dir := newTestRegistry(t, nil)

	src := filepath.Join(dir, "src", "a.txt")
	write(t, src, "incoming")
	dst := filepath.Join(dir, "dst")
	write(t, filepath.Join(dst, "a.txt"), "existing")

	id, err := reg.Submit(models.NewCopy([]string{src}, dst))
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	requests, _ := reg.Conflicts(id)
	select {
	case <-requests:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for the conflict request")
	}

	if !reg.Cancel(id) {
		t.Fatal("Cancel() should find the pending operation")
	}
	reg.Wait(id)

	completed := reg.Completed()
	if len(completed) != 1 || !completed[0].Cancelled {
		t.Fatalf("Completed() = %+v, want one cancelled entry", completed)
	}
	if len(reg.Failed()) != 0 {
		t.Error("a user cancel must not land in the failed collection")
	}
	if read(t, filepath.Join(dst, "a.txt")) != "existing" {
		t.Error("cancelled copy must leave the destination untouched")
	}
}

func TestRegistry_FailedCollection(t *testing.T) {
	reg, dir := newTestRegistry(t, nil)

	missing := filepath.Join(dir, "does-not-exist.txt")
	id, err := reg.Submit(models.NewDelete([]string{missing}))
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	reg.Wait(id)

	failed := reg.Failed()
	if len(failed) != 1 {
		t.Fatalf("Failed() has %d entries, want 1", len(failed))
	}
	if failed[0].ID != id || !strings.Contains(failed[0].Error, "does-not-exist.txt") {
		t.Errorf("failed entry = %+v, want id %d referencing the missing path", failed[0], id)
	}
	if len(reg.Completed()) != 0 {
		t.Error("a failed id must not also appear in the complete collection")
	}
}

func TestRegistry_DeleteRecordsTrashedPaths(t *testing.T) {
	reg, dir := newTestRegistry(t, nil)

	path := filepath.Join(dir, "doc.txt")
	write(t, path, "content")

	id, err := reg.Submit(models.NewDelete([]string{path}))
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	reg.Wait(id)

	completed := reg.Completed()
	if len(completed) != 1 {
		t.Fatalf("Completed() has %d entries, want 1", len(completed))
	}
	if len(completed[0].TrashedPaths) != 1 || completed[0].TrashedPaths[0] != path {
		t.Errorf("TrashedPaths = %v, want [%s]", completed[0].TrashedPaths, path)
	}
}

func TestRegistry_Dismiss(t *testing.T) {
	reg, dir := newTestRegistry(t, nil)

	id, err := reg.Submit(models.NewFolder(filepath.Join(dir, "folder")))
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	reg.Wait(id)

	if !reg.Dismiss(id) {
		t.Error("Dismiss() should evict the completed entry")
	}
	if len(reg.Completed()) != 0 {
		t.Error("Completed() should be empty after dismiss")
	}
	if reg.Dismiss(id) {
		t.Error("Dismiss() on an evicted id should report false")
	}
}

func TestRegistry_SnapshotIgnoresSingleStepKinds(t *testing.T) {
	reg, dir := newTestRegistry(t, nil)

	id, err := reg.Submit(models.NewFolder(filepath.Join(dir, "folder")))
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	reg.Wait(id)

	snap := reg.Snapshot()
	if snap.Running != 0 || snap.Finished != 0 {
		t.Errorf("Snapshot() = %+v, single-step kinds must not drive the indicator", snap)
	}
	if snap.MeanProgress != 1 {
		t.Errorf("MeanProgress = %f, want 1 when nothing is running", snap.MeanProgress)
	}

	src := filepath.Join(dir, "a.txt")
	write(t, src, "a")
	dst := filepath.Join(dir, "dst")
	if err := os.MkdirAll(dst, 0755); err != nil {
		t.Fatal(err)
	}
	id, err = reg.Submit(models.NewCopy([]string{src}, dst))
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	reg.Wait(id)

	snap = reg.Snapshot()
	if snap.Finished != 1 {
		t.Errorf("Snapshot().Finished = %d, want 1 after a finished copy", snap.Finished)
	}
}

func TestRegistry_SubscribeReceivesLifecycle(t *testing.T) {
	reg, dir := newTestRegistry(t, nil)

	events, unsubscribe := reg.Subscribe()
	defer unsubscribe()

	id, err := reg.Submit(models.NewFolder(filepath.Join(dir, "folder")))
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	reg.Wait(id)

	var got []EventType
	timeout := time.After(2 * time.Second)
	for len(got) < 2 {
		select {
		case ev := <-events:
			if ev.ID == id {
				got = append(got, ev.Type)
			}
		case <-timeout:
			t.Fatalf("timed out, received %v", got)
		}
	}
	if got[0] != EventSubmitted || got[1] != EventCompleted {
		t.Errorf("events = %v, want [submitted completed]", got)
	}
}

func TestRegistry_MaxConcurrentQueuesAndCancelsQueued(t *testing.T) {
	cfg := config.Default()
	cfg.Engine.MaxConcurrent = 1
	reg, dir := newTestRegistry(t, cfg)

	src := filepath.Join(dir, "src", "a.txt")
	write(t, src, "incoming")
	dst := filepath.Join(dir, "dst")
	write(t, filepath.Join(dst, "a.txt"), "existing")

	// The first operation holds the only slot while blocked on its dialog
	first, err := reg.Submit(models.NewCopy([]string{src}, dst))
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	requests, _ := reg.Conflicts(first)
	select {
	case <-requests:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for the conflict request")
	}

	second, err := reg.Submit(models.NewFolder(filepath.Join(dir, "queued")))
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	// Cancelling the queued operation must release it without running
	if !reg.Cancel(second) {
		t.Fatal("Cancel() should find the queued operation")
	}
	reg.Wait(second)
	if _, err := os.Stat(filepath.Join(dir, "queued")); !os.IsNotExist(err) {
		t.Error("cancelled queued operation must not run")
	}

	reg.Resolve(first, models.ConflictResponse{Choice: models.ChoiceSkip})
	reg.Wait(first)

	completed := reg.Completed()
	if len(completed) != 2 {
		t.Fatalf("Completed() has %d entries, want 2", len(completed))
	}
}

func TestRegistry_PauseAllAndUnknownIDs(t *testing.T) {
	reg, _ := newTestRegistry(t, nil)

	if reg.Pause(42) || reg.Unpause(42) || reg.Cancel(42) {
		t.Error("control calls on unknown ids should report false")
	}
	if _, _, ok := reg.Progress(42); ok {
		t.Error("Progress() on an unknown id should report false")
	}
	reg.PauseAll() // no pending operations; must not panic
}

func TestRegistry_ApplyToAllScopedToOneOperation(t *testing.T) {
	reg, dir := newTestRegistry(t, nil)

	// First operation: two conflicting items, answered once
	srcA1 := filepath.Join(dir, "srcA", "a.txt")
	srcA2 := filepath.Join(dir, "srcA", "b.txt")
	write(t, srcA1, "new a")
	write(t, srcA2, "new b")
	dstA := filepath.Join(dir, "dstA")
	write(t, filepath.Join(dstA, "a.txt"), "old a")
	write(t, filepath.Join(dstA, "b.txt"), "old b")

	// Second operation: its own conflict, elsewhere
	srcB := filepath.Join(dir, "srcB", "c.txt")
	write(t, srcB, "new c")
	dstB := filepath.Join(dir, "dstB")
	write(t, filepath.Join(dstB, "c.txt"), "old c")

	first, err := reg.Submit(models.NewCopy([]string{srcA1, srcA2}, dstA))
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	second, err := reg.Submit(models.NewCopy([]string{srcB}, dstB))
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	requestsA, _ := reg.Conflicts(first)
	select {
	case <-requestsA:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for the first operation's conflict request")
	}
	if !reg.Resolve(first, models.ConflictResponse{Choice: models.ChoiceReplace, ApplyToAll: true}) {
		t.Fatal("Resolve() should find the first operation")
	}
	reg.Wait(first)

	// One apply-to-all answer covered both of the first operation's items
	if read(t, filepath.Join(dstA, "a.txt")) != "new a" || read(t, filepath.Join(dstA, "b.txt")) != "new b" {
		t.Error("apply-to-all replace should cover every remaining item of its own operation")
	}

	// The second operation still raises its own request
	requestsB, ok := reg.Conflicts(second)
	if !ok {
		t.Fatal("Conflicts() should find the second operation")
	}
	var req models.ConflictRequest
	select {
	case req = <-requestsB:
	case <-time.After(2 * time.Second):
		t.Fatal("an apply-to-all answer must not resolve another operation's conflicts")
	}
	if want := filepath.Join(dstB, "c.txt"); req.Dest != want {
		t.Errorf("request Dest = %s, want %s", req.Dest, want)
	}
	reg.Resolve(second, models.ConflictResponse{Choice: models.ChoiceSkip})
	reg.Wait(second)

	if read(t, filepath.Join(dstB, "c.txt")) != "old c" {
		t.Error("the second operation's skip must leave its destination untouched")
	}
}

func TestRegistry_BuildsLoggerFromConfig(t *testing.T) {
	dir, err := os.MkdirTemp("", "filenorris-registry-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })

	trash, err := storage.NewLocalTrash(filepath.Join(dir, ".trash"))
	if err != nil {
		t.Fatalf("failed to create trash: %v", err)
	}

	logFile := filepath.Join(dir, "engine.log")
	cfg := config.Default()
	cfg.Logging.File = logFile

	reg, err := New(Options{Trash: trash, Launcher: &recordingLauncher{}, Config: cfg})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	id, err := reg.Submit(models.NewFolder(filepath.Join(dir, "folder")))
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	reg.Wait(id)
	if err := reg.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	data, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatalf("configured log file missing: %v", err)
	}
	if !strings.Contains(string(data), "operation submitted") {
		t.Errorf("log file missing the submission record:\n%s", data)
	}
	if !strings.Contains(string(data), "operation completed") {
		t.Errorf("log file missing the completion record:\n%s", data)
	}
}

func TestRegistry_DisabledLoggingYieldsNullLogger(t *testing.T) {
	dir, err := os.MkdirTemp("", "filenorris-registry-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })

	trash, err := storage.NewLocalTrash(filepath.Join(dir, ".trash"))
	if err != nil {
		t.Fatalf("failed to create trash: %v", err)
	}

	cfg := config.Default()
	cfg.Logging.Enabled = false

	reg, err := New(Options{Trash: trash, Launcher: &recordingLauncher{}, Config: cfg})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer reg.Close()

	if _, ok := reg.logger.(*logging.NullLogger); !ok {
		t.Errorf("registry logger = %T with logging disabled, want *logging.NullLogger", reg.logger)
	}
}

func TestRegistry_CloseRejectsSubmissions(t *testing.T) {
	reg, dir := newTestRegistry(t, nil)

	if err := reg.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if _, err := reg.Submit(models.NewFolder(filepath.Join(dir, "late"))); err == nil {
		t.Error("Submit() after Close() should fail")
	}
}
