package control

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/regdesk/regctl/internal/agentdb"
	"github.com/regdesk/regctl/internal/discovery"
	"github.com/regdesk/regctl/internal/process"
	"github.com/regdesk/regctl/internal/scan"
)

type fakeProc struct {
	pid       int32
	dir       string
	signalErr error

	terminated, killed, suspended, resumed bool
}

func (f *fakeProc) PID() int32            { return f.pid }
func (f *fakeProc) Name() (string, error) { return "regagent.exe", nil }
func (f *fakeProc) Exe() (string, error)  { return filepath.Join(f.dir, "regagent.exe"), nil }
func (f *fakeProc) Cwd() (string, error)  { return f.dir, nil }

func (f *fakeProc) Terminate() error {
	f.terminated = true
	return f.signalErr
}

func (f *fakeProc) Kill() error {
	f.killed = true
	return f.signalErr
}

func (f *fakeProc) Suspend() error {
	f.suspended = true
	return f.signalErr
}

func (f *fakeProc) Resume() error {
	f.resumed = true
	return f.signalErr
}

type nopHealth struct{}

func (nopHealth) Read(context.Context, string) agentdb.Record { return agentdb.DefaultRecord() }

type fixture struct {
	mgr   string
	procs []process.Process
	lists int
	ctl   *Controller
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{mgr: t.TempDir()}
	log := zerolog.Nop()
	list := func() ([]process.Process, error) {
		f.lists++
		return f.procs, nil
	}
	engine := discovery.NewEngine(discovery.Config{
		ManagerProcess: "regdesk.exe",
		AgentProcess:   "regagent.exe",
		ManagerDir:     f.mgr,
	}, discovery.NewCache(), process.NewLocatorWith(list, log), scan.New(nil, log), nopHealth{}, log)
	f.ctl = New(engine, nil, log)
	return f
}

func (f *fixture) instanceDir(t *testing.T, name string) string {
	t.Helper()
	dir := filepath.Join(f.mgr, "profiles", name)
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, agentdb.DefaultFile), nil, 0644))
	return dir
}

func TestStop(t *testing.T) {
	f := newFixture(t)
	dir := f.instanceDir(t, "p1")
	p := &fakeProc{pid: 10, dir: dir}
	f.procs = []process.Process{p}

	inst, err := f.ctl.Find(context.Background(), "p1")
	require.NoError(t, err)
	assert.True(t, inst.Running)
	assert.True(t, f.ctl.Engine().Cache().Populated(discovery.CategoryProcess))

	n, err := f.ctl.Stop(inst, false)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.True(t, p.terminated)
	assert.False(t, p.killed)
	assert.False(t, f.ctl.Engine().Cache().Populated(discovery.CategoryProcess), "stop resets the cache")

	_, err = f.ctl.Stop(inst, true)
	require.NoError(t, err)
	assert.True(t, p.killed)
}

func TestStop_NotRunning(t *testing.T) {
	f := newFixture(t)
	dir := f.instanceDir(t, "p1")

	n, err := f.ctl.Stop(discovery.Instance{Path: dir, Name: "p1"}, false)
	assert.Zero(t, n)
	assert.ErrorIs(t, err, process.ErrNotRunning)
}

func TestSuspendResume(t *testing.T) {
	f := newFixture(t)
	dir := f.instanceDir(t, "p1")
	p := &fakeProc{pid: 10, dir: dir}
	f.procs = []process.Process{p}
	inst := discovery.Instance{Path: dir, Name: "p1"}

	_, err := f.ctl.Suspend(inst)
	require.NoError(t, err)
	_, err = f.ctl.Resume(inst)
	require.NoError(t, err)
	assert.True(t, p.suspended)
	assert.True(t, p.resumed)
}

func TestControlErrorsJoined(t *testing.T) {
	f := newFixture(t)
	dir := f.instanceDir(t, "p1")
	denied := errors.New("access denied")
	f.procs = []process.Process{
		&fakeProc{pid: 10, dir: dir, signalErr: denied},
		&fakeProc{pid: 11, dir: dir},
	}

	n, err := f.ctl.Suspend(discovery.Instance{Path: dir, Name: "p1"})
	assert.Equal(t, 1, n)
	assert.ErrorIs(t, err, denied)
	assert.Contains(t, err.Error(), "pid 10")
}

func TestLaunch(t *testing.T) {
	f := newFixture(t)
	dir := f.instanceDir(t, "p1")
	var gotExe, gotDir string
	f.ctl.launch = func(exe, d string, _ ...string) (int, error) {
		gotExe, gotDir = exe, d
		return 4242, nil
	}
	f.ctl.Instances(context.Background(), true)
	require.True(t, f.ctl.Engine().Cache().Populated(discovery.CategoryManager))

	pid, err := f.ctl.Launch(discovery.Instance{Path: dir, Name: "p1"})
	require.NoError(t, err)
	assert.Equal(t, 4242, pid)
	assert.Equal(t, filepath.Join(dir, "regagent.exe"), gotExe)
	assert.Equal(t, dir, gotDir)
	assert.False(t, f.ctl.Engine().Cache().Populated(discovery.CategoryManager), "launch resets the cache")
}

func TestLaunch_Error(t *testing.T) {
	f := newFixture(t)
	_, err := f.ctl.Launch(discovery.Instance{Path: filepath.Join(f.mgr, "missing"), Name: "missing"})
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLaunchManager(t *testing.T) {
	f := newFixture(t)
	var gotExe string
	f.ctl.launch = func(exe, _ string, _ ...string) (int, error) {
		gotExe = exe
		return 1, nil
	}
	_, err := f.ctl.LaunchManager()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(f.mgr, "regdesk.exe"), gotExe)
}

func TestFind_NotFound(t *testing.T) {
	f := newFixture(t)
	f.instanceDir(t, "p1")

	_, err := f.ctl.Find(context.Background(), "p9")
	assert.ErrorIs(t, err, discovery.ErrInstanceNotFound)
	assert.Contains(t, err.Error(), "p9")
}

func TestRefreshShift_NotConfigured(t *testing.T) {
	f := newFixture(t)
	_, err := f.ctl.RefreshShift(context.Background(), discovery.Instance{Path: f.mgr})
	assert.Error(t, err)
}

func TestMarkdown(t *testing.T) {
	inst := discovery.Instance{
		Path:     `C:\POS\till|7`,
		Name:     discovery.ExternalPrefix + "till7",
		Source:   discovery.SourceProcess,
		External: true,
		Running:  true,
		Version:  "2.1.0",
		Record:   agentdb.DefaultRecord(),
	}
	md := Markdown(inst)

	assert.Contains(t, md, "# [ext] till7")
	assert.Contains(t, md, "Not listed in the manager's manifest")
	assert.Contains(t, md, `till\|7`)
	assert.Contains(t, md, "| Health | BAD |")
	assert.Contains(t, md, "| Running | yes |")

	plain, err := RenderMarkdown(md, 80, false)
	require.NoError(t, err)
	assert.Equal(t, md, plain)

	styled, err := RenderMarkdown(md, 80, true)
	require.NoError(t, err)
	assert.Contains(t, styled, "2.1.0")
}
