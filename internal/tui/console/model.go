// Package console is the interactive maintenance console: a live list of
// discovered instances with keys for the common operator actions.
//
// Every discovery call runs as a tea.Cmd, and the model refuses new actions
// until the previous one has reported back, so the discovery cache only ever
// has one caller at a time.
package console

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/regdesk/regctl/internal/discovery"
	"github.com/regdesk/regctl/internal/shift"
)

// Backend performs discovery and instance actions.
type Backend interface {
	Instances(ctx context.Context, useCache bool) discovery.Result
	Invalidate()
	Launch(inst discovery.Instance) (int, error)
	LaunchManager() (int, error)
	Stop(inst discovery.Instance, force bool) (int, error)
	RefreshShift(ctx context.Context, inst discovery.Instance) (*shift.Result, error)
	Detail(inst discovery.Instance, width int, styled bool) (string, error)
}

// Model is the bubbletea model for the console.
type Model struct {
	ctx     context.Context
	backend Backend
	styled  bool

	width  int
	height int

	result   discovery.Result
	loaded   bool
	selected int

	busy      bool
	busyLabel string
	status    string
	err       error

	detail   bool
	viewport viewport.Model

	keys     KeyMap
	help     help.Model
	showHelp bool
	spinner  spinner.Model
}

// New returns a console model. styled enables markdown styling of the
// detail view.
func New(ctx context.Context, backend Backend, styled bool) *Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = spinnerStyle

	return &Model{
		ctx:      ctx,
		backend:  backend,
		styled:   styled,
		keys:     DefaultKeyMap(),
		help:     help.New(),
		spinner:  sp,
		viewport: viewport.New(0, 0),
	}
}

// resolvedMsg carries a finished discovery pass.
type resolvedMsg struct {
	result discovery.Result
}

// actionMsg reports an operator action. rescan asks for a fresh listing.
type actionMsg struct {
	status string
	err    error
	rescan bool
}

// detailMsg carries a rendered instance description.
type detailMsg struct {
	content string
	err     error
}

// Init starts the first discovery pass.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		tea.SetWindowTitle("regctl console"),
		m.start("Discovering instances", m.resolve(true)),
	)
}

// start marks the model busy and runs cmd alongside the spinner.
func (m *Model) start(label string, cmd tea.Cmd) tea.Cmd {
	m.busy = true
	m.busyLabel = label
	m.err = nil
	return tea.Batch(m.spinner.Tick, cmd)
}

func (m *Model) resolve(useCache bool) tea.Cmd {
	return func() tea.Msg {
		return resolvedMsg{result: m.backend.Instances(m.ctx, useCache)}
	}
}

func (m *Model) current() (discovery.Instance, bool) {
	if m.selected < 0 || m.selected >= len(m.result.Instances) {
		return discovery.Instance{}, false
	}
	return m.result.Instances[m.selected], true
}

// Update handles messages.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.viewport.Width = msg.Width
		m.viewport.Height = max(msg.Height-4, 1)
		return m, nil

	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case resolvedMsg:
		m.busy = false
		m.loaded = true
		m.result = msg.result
		if m.selected >= len(m.result.Instances) {
			m.selected = max(len(m.result.Instances)-1, 0)
		}
		return m, nil

	case actionMsg:
		m.busy = false
		m.status = msg.status
		m.err = msg.err
		if msg.rescan {
			status, err := m.status, m.err
			cmd := m.start("Rescanning", m.resolve(true))
			m.status, m.err = status, err
			return m, cmd
		}
		return m, nil

	case detailMsg:
		m.busy = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.detail = true
		m.viewport.SetContent(msg.content)
		m.viewport.GotoTop()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		return m, tea.Quit
	}

	if m.detail {
		if key.Matches(msg, m.keys.Back) {
			m.detail = false
			return m, nil
		}
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
		m.help.ShowAll = m.showHelp
		return m, nil
	case key.Matches(msg, m.keys.Up):
		if m.selected > 0 {
			m.selected--
		}
		return m, nil
	case key.Matches(msg, m.keys.Down):
		if m.selected < len(m.result.Instances)-1 {
			m.selected++
		}
		return m, nil
	}

	if m.busy {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Refresh):
		m.status = ""
		m.backend.Invalidate()
		return m, m.start("Rescanning", m.resolve(true))

	case key.Matches(msg, m.keys.Manager):
		return m, m.start("Starting manager", func() tea.Msg {
			pid, err := m.backend.LaunchManager()
			if err != nil {
				return actionMsg{err: err}
			}
			return actionMsg{status: fmt.Sprintf("manager started (pid %d)", pid), rescan: true}
		})
	}

	inst, ok := m.current()
	if !ok {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Details):
		width := m.width
		return m, m.start("Loading details", func() tea.Msg {
			content, err := m.backend.Detail(inst, width, m.styled)
			return detailMsg{content: content, err: err}
		})

	case key.Matches(msg, m.keys.Launch):
		if inst.Running {
			m.status = inst.Name + " is already running"
			return m, nil
		}
		return m, m.start("Launching "+inst.Name, func() tea.Msg {
			pid, err := m.backend.Launch(inst)
			if err != nil {
				return actionMsg{err: err}
			}
			return actionMsg{status: fmt.Sprintf("%s started (pid %d)", inst.Name, pid), rescan: true}
		})

	case key.Matches(msg, m.keys.Stop), key.Matches(msg, m.keys.Kill):
		force := key.Matches(msg, m.keys.Kill)
		return m, m.start("Stopping "+inst.Name, func() tea.Msg {
			n, err := m.backend.Stop(inst, force)
			if n == 0 {
				return actionMsg{err: err}
			}
			return actionMsg{status: fmt.Sprintf("%s: %d process(es) stopped", inst.Name, n), err: err, rescan: true}
		})

	case key.Matches(msg, m.keys.Shift):
		return m, m.start("Refreshing shift on "+inst.Name, func() tea.Msg {
			res, err := m.backend.RefreshShift(m.ctx, inst)
			if err != nil {
				return actionMsg{err: err}
			}
			return actionMsg{status: fmt.Sprintf("%s: shift refresh accepted (%d)", inst.Name, res.Status)}
		})
	}
	return m, nil
}

// View renders the model.
func (m *Model) View() string {
	return m.renderView()
}
