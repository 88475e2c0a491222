// Package process locates cash-register processes in the live process table
// and wraps the few controls the console exercises on them.
package process

import (
	"errors"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	ps "github.com/shirou/gopsutil/v3/process"

	"github.com/regdesk/regctl/internal/logging"
	"github.com/regdesk/regctl/internal/util"
)

// ErrNotRunning indicates no matching process was found.
var ErrNotRunning = errors.New("process not running")

// ErrUnsupported indicates the process handle cannot perform the requested control.
var ErrUnsupported = errors.New("operation not supported for this process")

// Process is the view of a live process the locator needs. Every accessor
// may fail: the process can exit mid-scan or deny access.
type Process interface {
	PID() int32
	Name() (string, error)
	Exe() (string, error)
	Cwd() (string, error)
}

// Signaler is implemented by processes that can be stopped and paused.
type Signaler interface {
	Terminate() error
	Kill() error
	Suspend() error
	Resume() error
}

// Lister enumerates the live process table.
type Lister func() ([]Process, error)

// Handle is a process that matched a lookup.
type Handle struct {
	PID  int32
	Name string
	Exe  string

	proc Process
}

// WorkDir returns the process working directory, falling back to the
// directory of its executable when the working directory is unreadable.
func (h *Handle) WorkDir() string {
	if h.proc != nil {
		if cwd, err := h.proc.Cwd(); err == nil && cwd != "" {
			return util.NormalizePath(cwd)
		}
	}
	if h.Exe == "" {
		return ""
	}
	return util.NormalizePath(filepath.Dir(h.Exe))
}

// Stop terminates the process. With force it is killed outright.
func (h *Handle) Stop(force bool) error {
	s, ok := h.proc.(Signaler)
	if !ok {
		return ErrUnsupported
	}
	if force {
		return s.Kill()
	}
	return s.Terminate()
}

// Suspend pauses every thread of the process.
func (h *Handle) Suspend() error {
	s, ok := h.proc.(Signaler)
	if !ok {
		return ErrUnsupported
	}
	return s.Suspend()
}

// Resume continues a suspended process.
func (h *Handle) Resume() error {
	s, ok := h.proc.(Signaler)
	if !ok {
		return ErrUnsupported
	}
	return s.Resume()
}

// Locator queries the process table. Lookups never fail: processes that
// vanish or deny access are skipped and partial results are returned.
type Locator struct {
	list Lister
	log  zerolog.Logger
}

// NewLocator returns a Locator backed by the operating system process table.
func NewLocator(log zerolog.Logger) *Locator {
	return NewLocatorWith(SystemProcesses, log)
}

// NewLocatorWith returns a Locator backed by an arbitrary process lister.
func NewLocatorWith(list Lister, log zerolog.Logger) *Locator {
	return &Locator{
		list: list,
		log:  logging.Component(log, "process"),
	}
}

// FindAllByName returns every live process whose image name matches name,
// case-insensitively.
func (l *Locator) FindAllByName(name string) []*Handle {
	var found []*Handle
	for _, p := range l.snapshot() {
		if h := l.match(p, name); h != nil {
			found = append(found, h)
		}
	}
	return found
}

// FindByPath returns the first process named name whose executable lies under
// targetDir, or nil.
func (l *Locator) FindByPath(name, targetDir string) *Handle {
	all := l.FindAllUnder(name, targetDir)
	if len(all) == 0 {
		return nil
	}
	return all[0]
}

// FindAllUnder returns every process named name whose executable lies under
// targetDir.
func (l *Locator) FindAllUnder(name, targetDir string) []*Handle {
	if targetDir == "" {
		return nil
	}
	target := resolve(targetDir)

	var found []*Handle
	for _, p := range l.snapshot() {
		h := l.match(p, name)
		if h == nil || h.Exe == "" {
			continue
		}
		if util.IsUnder(resolve(h.Exe), target) {
			found = append(found, h)
		}
	}
	return found
}

// IsRunning reports whether a process named name runs from under dir.
func (l *Locator) IsRunning(name, dir string) bool {
	return l.FindByPath(name, dir) != nil
}

func (l *Locator) snapshot() []Process {
	procs, err := l.list()
	if err != nil {
		// Partial tables are still useful; an empty one is the worst case.
		l.log.Debug().Err(err).Msg("enumerating processes")
	}
	return procs
}

func (l *Locator) match(p Process, name string) *Handle {
	pname, err := p.Name()
	if err != nil {
		l.log.Debug().Int32("pid", p.PID()).Err(err).Msg("reading process name")
		return nil
	}
	if !strings.EqualFold(pname, name) {
		return nil
	}
	exe, err := p.Exe()
	if err != nil {
		l.log.Debug().Int32("pid", p.PID()).Err(err).Msg("reading process executable")
		exe = ""
	}
	return &Handle{PID: p.PID(), Name: pname, Exe: exe, proc: p}
}

// resolve follows symlinks where possible so a junction-installed agent
// still matches its real directory.
func resolve(path string) string {
	path = util.NormalizePath(path)
	if real, err := filepath.EvalSymlinks(path); err == nil {
		return real
	}
	return path
}

// SystemProcesses lists the live OS process table through gopsutil.
func SystemProcesses() ([]Process, error) {
	procs, err := ps.Processes()
	out := make([]Process, 0, len(procs))
	for _, p := range procs {
		out = append(out, systemProcess{p})
	}
	return out, err
}

type systemProcess struct {
	p *ps.Process
}

func (s systemProcess) PID() int32 { return s.p.Pid }

func (s systemProcess) Name() (string, error) { return s.p.Name() }

func (s systemProcess) Exe() (string, error) { return s.p.Exe() }

func (s systemProcess) Cwd() (string, error) { return s.p.Cwd() }

func (s systemProcess) Terminate() error { return s.p.Terminate() }

func (s systemProcess) Kill() error { return s.p.Kill() }

func (s systemProcess) Suspend() error { return s.p.Suspend() }

func (s systemProcess) Resume() error { return s.p.Resume() }
