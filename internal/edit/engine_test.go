package edit

import (
	"context"
	"errors"
	"testing"

	"github.com/dshills/patchkit/internal/vfs"
)

func newTestEngine(t *testing.T, files map[string]string) (*Engine, *vfs.MemFS) {
	t.Helper()
	fsys := vfs.NewMemFS()
	for path, content := range files {
		if err := fsys.AddFile(path, content); err != nil {
			t.Fatalf("AddFile(%s): %v", path, err)
		}
	}
	return New(fsys), fsys
}

func TestSimulateSequential(t *testing.T) {
	e := New(vfs.NewMemFS())

	// The second operation matches text produced by the first.
	ops := []Operation{
		{Search: "a", Replace: "ab"},
		{Search: "b", Replace: "c"},
	}
	got, results, err := e.Simulate([]byte("a"), ops)
	if err != nil {
		t.Fatalf("Simulate: %v", err)
	}
	if string(got) != "ac" {
		t.Errorf("final content = %q, want %q", got, "ac")
	}
	if len(results) != 2 {
		t.Fatalf("results = %d, want 2", len(results))
	}
	for i, r := range results {
		if r.Index != i || r.Replaced != 1 {
			t.Errorf("results[%d] = %+v, want {Index:%d Replaced:1}", i, r, i)
		}
	}
}

func TestSimulateInputUnmodified(t *testing.T) {
	e := New(vfs.NewMemFS())

	text := []byte("hello")
	_, _, err := e.Simulate(text, []Operation{{Search: "hello", Replace: "goodbye"}})
	if err != nil {
		t.Fatalf("Simulate: %v", err)
	}
	if string(text) != "hello" {
		t.Errorf("input buffer modified: %q", text)
	}
}

func TestSimulateNoMatch(t *testing.T) {
	e := New(vfs.NewMemFS())

	ops := []Operation{
		{Search: "one", Replace: "1"},
		{Search: "missing", Replace: "x"},
	}
	_, _, err := e.Simulate([]byte("one two"), ops)

	var me *MatchError
	if !errors.As(err, &me) {
		t.Fatalf("error = %v, want *MatchError", err)
	}
	if me.Kind != NoMatch {
		t.Errorf("Kind = %v, want NoMatch", me.Kind)
	}
	if me.OpIndex != 1 {
		t.Errorf("OpIndex = %d, want 1", me.OpIndex)
	}
	if len(me.Prior) != 1 || me.Prior[0].Index != 0 {
		t.Errorf("Prior = %+v, want one result for edit 0", me.Prior)
	}
}

func TestSimulateAmbiguous(t *testing.T) {
	e := New(vfs.NewMemFS())

	_, _, err := e.Simulate([]byte("foo\nbar\nfoo\n"), []Operation{{Search: "foo", Replace: "baz"}})

	var me *MatchError
	if !errors.As(err, &me) {
		t.Fatalf("error = %v, want *MatchError", err)
	}
	if me.Kind != Ambiguous {
		t.Errorf("Kind = %v, want Ambiguous", me.Kind)
	}
	if len(me.Lines) != 2 || me.Lines[0] != 1 || me.Lines[1] != 3 {
		t.Errorf("Lines = %v, want [1 3]", me.Lines)
	}
}

func TestSimulateReplaceAll(t *testing.T) {
	e := New(vfs.NewMemFS())

	got, results, err := e.Simulate([]byte("foo foo foo"), []Operation{{Search: "foo", Replace: "bar", All: true}})
	if err != nil {
		t.Fatalf("Simulate: %v", err)
	}
	if string(got) != "bar bar bar" {
		t.Errorf("final content = %q, want %q", got, "bar bar bar")
	}
	if results[0].Replaced != 3 {
		t.Errorf("Replaced = %d, want 3", results[0].Replaced)
	}
}

func TestSimulateReplaceAllSingleOccurrence(t *testing.T) {
	e := New(vfs.NewMemFS())

	got, _, err := e.Simulate([]byte("only one foo here"), []Operation{{Search: "foo", Replace: "bar", All: true}})
	if err != nil {
		t.Fatalf("Simulate: %v", err)
	}
	if string(got) != "only one bar here" {
		t.Errorf("final content = %q", got)
	}
}

func TestSimulateNoOpReplace(t *testing.T) {
	e := New(vfs.NewMemFS())

	got, results, err := e.Simulate([]byte("same text"), []Operation{{Search: "same", Replace: "same"}})
	if err != nil {
		t.Fatalf("Simulate: %v", err)
	}
	if string(got) != "same text" {
		t.Errorf("final content = %q, want unchanged", got)
	}
	if results[0].Replaced != 1 {
		t.Errorf("Replaced = %d, want 1", results[0].Replaced)
	}
}

func TestSimulateEmptySearch(t *testing.T) {
	e := New(vfs.NewMemFS())

	_, _, err := e.Simulate([]byte("abc"), []Operation{{Search: "", Replace: "x"}})
	if !errors.Is(err, ErrEmptySearch) {
		t.Errorf("error = %v, want ErrEmptySearch", err)
	}
}

func TestApply(t *testing.T) {
	e, fsys := newTestEngine(t, map[string]string{
		"/work/main.go": "package main\n\nfunc main() {}\n",
	})

	out, err := e.Apply(context.Background(), Request{
		Path: "/work/main.go",
		Ops: []Operation{
			{Search: "func main() {}", Replace: "func main() {\n\trun()\n}"},
		},
	})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if out.Applied != 1 {
		t.Errorf("Applied = %d, want 1", out.Applied)
	}

	got, err := fsys.ReadFile("/work/main.go")
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	want := "package main\n\nfunc main() {\n\trun()\n}\n"
	if string(got) != want {
		t.Errorf("file content = %q, want %q", got, want)
	}
}

func TestApplyFailureLeavesFileUntouched(t *testing.T) {
	const original = "alpha\nbeta\ngamma\n"
	e, fsys := newTestEngine(t, map[string]string{"/f.txt": original})

	_, err := e.Apply(context.Background(), Request{
		Path: "/f.txt",
		Ops: []Operation{
			{Search: "alpha", Replace: "ALPHA"},
			{Search: "delta", Replace: "DELTA"}, // fails
		},
	})
	if err == nil {
		t.Fatal("expected error")
	}

	got, _ := fsys.ReadFile("/f.txt")
	if string(got) != original {
		t.Errorf("file modified after failed request: %q", got)
	}
	if fsys.Exists("/f.txt.bak") {
		t.Error("backup written for failed request")
	}
}

func TestApplyDryRun(t *testing.T) {
	const original = "hello world\n"
	e, fsys := newTestEngine(t, map[string]string{"/f.txt": original})

	out, err := e.Apply(context.Background(), Request{
		Path:          "/f.txt",
		Ops:           []Operation{{Search: "world", Replace: "there"}},
		DryRun:        true,
		Backup:        true,
		ReturnContent: true,
	})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if !out.DryRun {
		t.Error("DryRun not set on outcome")
	}
	if string(out.FinalContent) != "hello there\n" {
		t.Errorf("FinalContent = %q", out.FinalContent)
	}
	if out.BackupPath != "" {
		t.Errorf("BackupPath = %q, want empty on dry run", out.BackupPath)
	}

	got, _ := fsys.ReadFile("/f.txt")
	if string(got) != original {
		t.Errorf("dry run modified file: %q", got)
	}
	if fsys.Exists("/f.txt.bak") {
		t.Error("dry run wrote a backup")
	}
}

func TestApplyBackup(t *testing.T) {
	const original = "v1\n"
	e, fsys := newTestEngine(t, map[string]string{"/f.txt": original})

	out, err := e.Apply(context.Background(), Request{
		Path:   "/f.txt",
		Ops:    []Operation{{Search: "v1", Replace: "v2"}},
		Backup: true,
	})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if out.BackupPath != "/f.txt.bak" {
		t.Errorf("BackupPath = %q, want /f.txt.bak", out.BackupPath)
	}

	bak, err := fsys.ReadFile("/f.txt.bak")
	if err != nil {
		t.Fatalf("reading backup: %v", err)
	}
	if string(bak) != original {
		t.Errorf("backup content = %q, want %q", bak, original)
	}
}

func TestApplyBackupOverwritesPrevious(t *testing.T) {
	e, fsys := newTestEngine(t, map[string]string{"/f.txt": "v1\n"})

	ctx := context.Background()
	reqs := []Request{
		{Path: "/f.txt", Ops: []Operation{{Search: "v1", Replace: "v2"}}, Backup: true},
		{Path: "/f.txt", Ops: []Operation{{Search: "v2", Replace: "v3"}}, Backup: true},
	}
	for _, req := range reqs {
		if _, err := e.Apply(ctx, req); err != nil {
			t.Fatalf("Apply: %v", err)
		}
	}

	bak, _ := fsys.ReadFile("/f.txt.bak")
	if string(bak) != "v2\n" {
		t.Errorf("backup = %q, want single-generation %q", bak, "v2\n")
	}
}

func TestApplyUTF16RoundTrip(t *testing.T) {
	fsys := vfs.NewMemFS()
	raw, err := vfs.Encode([]byte("hello world\n"), vfs.EncodingUTF16LE)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if err := fsys.WriteFile("/f.txt", raw, 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	e := New(fsys)

	_, err = e.Apply(context.Background(), Request{
		Path: "/f.txt",
		Ops:  []Operation{{Search: "world", Replace: "there"}},
	})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}

	got, _ := fsys.ReadFile("/f.txt")
	text, enc, err := vfs.Decode(got)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if enc != vfs.EncodingUTF16LE {
		t.Errorf("encoding = %v, want EncodingUTF16LE", enc)
	}
	if string(text) != "hello there\n" {
		t.Errorf("decoded content = %q", text)
	}
}

func TestApplyRejectsBinary(t *testing.T) {
	fsys := vfs.NewMemFS()
	if err := fsys.WriteFile("/bin", []byte{0x7f, 'E', 'L', 'F', 0x00, 0x01}, 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	e := New(fsys)

	_, err := e.Apply(context.Background(), Request{
		Path: "/bin",
		Ops:  []Operation{{Search: "ELF", Replace: "elf"}},
	})
	if !errors.Is(err, ErrInvalidEncoding) {
		t.Errorf("error = %v, want ErrInvalidEncoding", err)
	}
}

func TestApplyCanceledContext(t *testing.T) {
	e, fsys := newTestEngine(t, map[string]string{"/f.txt": "x\n"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.Apply(ctx, Request{Path: "/f.txt", Ops: []Operation{{Search: "x", Replace: "y"}}})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
	got, _ := fsys.ReadFile("/f.txt")
	if string(got) != "x\n" {
		t.Errorf("file modified: %q", got)
	}
}

func TestApplyIdempotentFailureSecondRun(t *testing.T) {
	// After a successful run the same request no longer matches, so a
	// repeat fails cleanly without touching the file.
	e, fsys := newTestEngine(t, map[string]string{"/f.txt": "old\n"})

	req := Request{Path: "/f.txt", Ops: []Operation{{Search: "old", Replace: "new"}}}
	ctx := context.Background()

	if _, err := e.Apply(ctx, req); err != nil {
		t.Fatalf("first Apply: %v", err)
	}

	_, err := e.Apply(ctx, req)
	var me *MatchError
	if !errors.As(err, &me) || me.Kind != NoMatch {
		t.Fatalf("second Apply error = %v, want NoMatch", err)
	}
	got, _ := fsys.ReadFile("/f.txt")
	if string(got) != "new\n" {
		t.Errorf("file content = %q, want %q", got, "new\n")
	}
}

func TestWithBackupSuffix(t *testing.T) {
	e := New(vfs.NewMemFS(), WithBackupSuffix(".orig"))
	if got := e.BackupPath("/a/b.txt"); got != "/a/b.txt.orig" {
		t.Errorf("BackupPath = %q, want /a/b.txt.orig", got)
	}
}
