package process

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/rs/zerolog"
)

var errAccessDenied = errors.New("Access is denied.")

type fakeProc struct {
	pid     int32
	name    string
	exe     string
	cwd     string
	nameErr error
	exeErr  error
	cwdErr  error

	stopped bool
	killed  bool
}

func (f *fakeProc) PID() int32 { return f.pid }

func (f *fakeProc) Name() (string, error) { return f.name, f.nameErr }

func (f *fakeProc) Exe() (string, error) { return f.exe, f.exeErr }

func (f *fakeProc) Cwd() (string, error) { return f.cwd, f.cwdErr }

func (f *fakeProc) Terminate() error {
	f.stopped = true
	return nil
}

func (f *fakeProc) Kill() error {
	f.killed = true
	return nil
}

func (f *fakeProc) Suspend() error { return nil }

func (f *fakeProc) Resume() error { return nil }

func listerOf(procs ...Process) Lister {
	return func() ([]Process, error) { return procs, nil }
}

func TestFindAllByName_CaseInsensitive(t *testing.T) {
	loc := NewLocatorWith(listerOf(
		&fakeProc{pid: 1, name: "RegAgent.exe", exe: "/a/RegAgent.exe"},
		&fakeProc{pid: 2, name: "regagent.exe", exe: "/b/regagent.exe"},
		&fakeProc{pid: 3, name: "notepad.exe", exe: "/c/notepad.exe"},
	), zerolog.Nop())

	got := loc.FindAllByName("REGAGENT.EXE")
	if len(got) != 2 {
		t.Fatalf("FindAllByName returned %d handles, want 2", len(got))
	}
	if got[0].PID != 1 || got[1].PID != 2 {
		t.Errorf("PIDs = %d,%d, want 1,2", got[0].PID, got[1].PID)
	}
}

func TestFindAllByName_SkipsVanishedAndDenied(t *testing.T) {
	loc := NewLocatorWith(listerOf(
		&fakeProc{pid: 1, nameErr: os.ErrProcessDone},
		&fakeProc{pid: 2, name: "regagent.exe", exeErr: errAccessDenied},
		&fakeProc{pid: 3, name: "regagent.exe", exe: "/b/regagent.exe"},
	), zerolog.Nop())

	got := loc.FindAllByName("regagent.exe")
	if len(got) != 2 {
		t.Fatalf("FindAllByName returned %d handles, want 2", len(got))
	}
	if got[0].Exe != "" {
		t.Errorf("denied process Exe = %q, want empty", got[0].Exe)
	}
}

func TestFindAllByName_PartialTable(t *testing.T) {
	partial := func() ([]Process, error) {
		return []Process{&fakeProc{pid: 7, name: "regagent.exe", exe: "/x/regagent.exe"}},
			errors.New("could not read some processes")
	}
	loc := NewLocatorWith(partial, zerolog.Nop())

	if got := loc.FindAllByName("regagent.exe"); len(got) != 1 {
		t.Errorf("expected partial results to be returned, got %d", len(got))
	}
}

func TestFindByPath(t *testing.T) {
	root := t.TempDir()
	p1 := filepath.Join(root, "profiles", "p1")
	p2 := filepath.Join(root, "profiles", "p10")
	for _, d := range []string{p1, p2} {
		if err := os.MkdirAll(d, 0755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
	}

	loc := NewLocatorWith(listerOf(
		&fakeProc{pid: 10, name: "regagent.exe", exeErr: errAccessDenied},
		&fakeProc{pid: 11, name: "regagent.exe", exe: filepath.Join(p2, "regagent.exe")},
		&fakeProc{pid: 12, name: "regagent.exe", exe: filepath.Join(p1, "bin", "regagent.exe")},
	), zerolog.Nop())

	h := loc.FindByPath("regagent.exe", p1)
	if h == nil {
		t.Fatal("FindByPath returned nil, want pid 12")
	}
	if h.PID != 12 {
		t.Errorf("PID = %d, want 12 (p10 must not match p1 by prefix)", h.PID)
	}

	if loc.FindByPath("regagent.exe", filepath.Join(root, "profiles", "p3")) != nil {
		t.Error("expected no process for p3")
	}
	if loc.FindByPath("regagent.exe", "") != nil {
		t.Error("empty target dir must never match")
	}
	if !loc.IsRunning("regagent.exe", p2) {
		t.Error("IsRunning(p10) = false, want true")
	}
}

func TestFindByPath_CaseInsensitiveDir(t *testing.T) {
	if runtime.GOOS != "windows" {
		t.Skip("case-insensitive directory resolution only applies on Windows filesystems")
	}
	root := t.TempDir()
	dir := filepath.Join(root, "Profiles", "P1")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	loc := NewLocatorWith(listerOf(
		&fakeProc{pid: 1, name: "regagent.exe", exe: filepath.Join(root, "profiles", "p1", "regagent.exe")},
	), zerolog.Nop())
	if loc.FindByPath("regagent.exe", dir) == nil {
		t.Error("expected case-insensitive match")
	}
}

func TestHandleWorkDir(t *testing.T) {
	root := t.TempDir()
	withCwd := &Handle{Exe: filepath.Join(root, "bin", "a.exe"), proc: &fakeProc{cwd: root}}
	if got := withCwd.WorkDir(); got != root {
		t.Errorf("WorkDir = %q, want cwd %q", got, root)
	}

	noCwd := &Handle{Exe: filepath.Join(root, "bin", "a.exe"), proc: &fakeProc{cwdErr: errAccessDenied}}
	if got, want := noCwd.WorkDir(), filepath.Join(root, "bin"); got != want {
		t.Errorf("WorkDir = %q, want exe dir %q", got, want)
	}

	empty := &Handle{proc: &fakeProc{cwdErr: errAccessDenied}}
	if got := empty.WorkDir(); got != "" {
		t.Errorf("WorkDir = %q, want empty", got)
	}
}

func TestHandleStop(t *testing.T) {
	fp := &fakeProc{}
	h := &Handle{proc: fp}
	if err := h.Stop(false); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if !fp.stopped || fp.killed {
		t.Errorf("graceful stop: stopped=%v killed=%v", fp.stopped, fp.killed)
	}
	if err := h.Stop(true); err != nil {
		t.Fatalf("Stop(force): %v", err)
	}
	if !fp.killed {
		t.Error("force stop should kill")
	}

	if err := (&Handle{}).Stop(false); !errors.Is(err, ErrUnsupported) {
		t.Errorf("Stop on bare handle = %v, want ErrUnsupported", err)
	}
}

func TestLaunch_MissingExecutable(t *testing.T) {
	_, err := Launch(filepath.Join(t.TempDir(), "missing.exe"), "")
	if err == nil {
		t.Fatal("expected error for missing executable")
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("error = %v, want wrapped os.ErrNotExist", err)
	}
}
