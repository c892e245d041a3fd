// Package tui implements the interactive browse screen. It drives the
// application core through its read/query operations and never touches the
// record store directly.
package tui

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"prtrack/internal/application"
	"prtrack/internal/domain/model"
)

// Messages delivered by background commands.
type (
	refreshedMsg struct {
		scope   model.ScopeKey
		outcome model.RefreshOutcome
		err     error
	}
	pageLoadedMsg struct {
		scope model.ScopeKey
		page  application.Page
		err   error
	}
	prRefreshedMsg struct {
		id  model.Identity
		err error
	}
	exportedMsg struct {
		path  string
		count int
		err   error
	}
	statusExpiredMsg struct{}
)

// Model is the bubbletea model for the browse screen.
type Model struct {
	coordinator *application.RefreshCoordinator
	pages       *application.PageView
	session     *application.SelectionSession
	export      *application.ExportBuilder

	scopes     []model.ScopeKey
	scopeIdx   int
	pageSize   int
	pageIdx    int
	page       application.Page
	cursor     int
	threshold  time.Duration
	exportPath string

	refreshing  bool
	refreshedAt time.Time
	lastErr     error
	status      string
	spinner     spinner.Model
	keys        keyMap
	width       int
	height      int
}

// New creates the browse model. Scopes come from configuration: one per
// repository plus one per repository/user filter pair.
func New(
	coordinator *application.RefreshCoordinator,
	pages *application.PageView,
	session *application.SelectionSession,
	export *application.ExportBuilder,
	scopes []model.ScopeKey,
	pageSize int,
	threshold time.Duration,
	exportPath string,
) *Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = spinnerStyle

	return &Model{
		coordinator: coordinator,
		pages:       pages,
		session:     session,
		export:      export,
		scopes:      scopes,
		pageSize:    pageSize,
		threshold:   threshold,
		exportPath:  exportPath,
		spinner:     sp,
		keys:        defaultKeyMap(),
	}
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.ensureFreshCmd(m.scope(), false))
}

func (m *Model) scope() model.ScopeKey {
	if len(m.scopes) == 0 {
		return model.ScopeKey{}
	}
	return m.scopes[m.scopeIdx]
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case refreshedMsg:
		// A stale completion for a scope the user already navigated away
		// from still merged into the store; just don't render it.
		if msg.scope != m.scope() {
			return m, nil
		}
		m.refreshing = false
		m.lastErr = msg.err
		m.refreshedAt = msg.outcome.RefreshedAt
		return m, m.loadPageCmd()

	case pageLoadedMsg:
		if msg.scope != m.scope() {
			return m, nil
		}
		if msg.err != nil {
			m.lastErr = msg.err
			return m, nil
		}
		m.page = msg.page
		m.pageIdx = msg.page.Index
		if m.cursor >= len(m.page.Items) {
			m.cursor = max(0, len(m.page.Items)-1)
		}
		return m, nil

	case prRefreshedMsg:
		m.refreshing = false
		if msg.err != nil {
			if model.IsKind(msg.err, model.FailureNotFound) {
				m.setStatus(fmt.Sprintf("%s was deleted upstream", msg.id))
			} else {
				m.lastErr = msg.err
			}
		} else {
			m.setStatus(fmt.Sprintf("refreshed %s", msg.id))
		}
		return m, tea.Batch(m.loadPageCmd(), m.expireStatusCmd())

	case exportedMsg:
		if msg.err != nil {
			m.lastErr = msg.err
			return m, nil
		}
		m.setStatus(fmt.Sprintf("saved %d PR(s) to %s", msg.count, msg.path))
		return m, m.expireStatusCmd()

	case statusExpiredMsg:
		m.status = ""
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil

	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.page.Items)-1 {
			m.cursor++
		}
		return m, nil

	case key.Matches(msg, m.keys.PrevPage):
		if m.page.HasPrev {
			m.pageIdx--
			m.cursor = 0
			return m, m.loadPageCmd()
		}
		return m, nil

	case key.Matches(msg, m.keys.NextPage):
		if m.page.HasNext {
			m.pageIdx++
			m.cursor = 0
			return m, m.loadPageCmd()
		}
		return m, nil

	case key.Matches(msg, m.keys.NextScope):
		return m.switchScope(1)

	case key.Matches(msg, m.keys.PrevScope):
		return m.switchScope(-1)

	case key.Matches(msg, m.keys.Toggle):
		if m.cursor < len(m.page.Items) {
			pr := m.page.Items[m.cursor]
			if m.session.Toggle(pr) {
				m.setStatus(fmt.Sprintf("marked %s", pr.Identity()))
			} else {
				m.setStatus(fmt.Sprintf("unmarked %s", pr.Identity()))
			}
			return m, m.expireStatusCmd()
		}
		return m, nil

	case key.Matches(msg, m.keys.Refresh):
		m.refreshing = true
		m.lastErr = nil
		return m, m.ensureFreshCmd(m.scope(), true)

	case key.Matches(msg, m.keys.RefreshPR):
		if m.cursor < len(m.page.Items) {
			m.refreshing = true
			return m, m.refreshOneCmd(m.page.Items[m.cursor].Identity())
		}
		return m, nil

	case key.Matches(msg, m.keys.Export):
		items := m.session.List()
		return m, m.exportCmd(items)

	case key.Matches(msg, m.keys.Clear):
		m.session.Clear()
		m.setStatus("selection cleared")
		return m, m.expireStatusCmd()
	}

	return m, nil
}

func (m *Model) switchScope(delta int) (tea.Model, tea.Cmd) {
	if len(m.scopes) == 0 {
		return m, nil
	}
	m.scopeIdx = (m.scopeIdx + delta + len(m.scopes)) % len(m.scopes)
	m.pageIdx = 0
	m.cursor = 0
	m.page = application.Page{}
	m.refreshing = true
	m.lastErr = nil
	return m, m.ensureFreshCmd(m.scope(), false)
}

func (m *Model) setStatus(s string) {
	m.status = s
}

// --- Commands ---

func (m *Model) ensureFreshCmd(scope model.ScopeKey, force bool) tea.Cmd {
	return func() tea.Msg {
		outcome, err := m.coordinator.EnsureFresh(context.Background(), scope, force)
		return refreshedMsg{scope: scope, outcome: outcome, err: err}
	}
}

func (m *Model) loadPageCmd() tea.Cmd {
	scope := m.scope()
	idx := m.pageIdx
	return func() tea.Msg {
		page, err := m.pages.Page(context.Background(), scope, m.pageSize, idx)
		return pageLoadedMsg{scope: scope, page: page, err: err}
	}
}

func (m *Model) refreshOneCmd(id model.Identity) tea.Cmd {
	return func() tea.Msg {
		_, err := m.coordinator.RefreshOne(context.Background(), id)
		return prRefreshedMsg{id: id, err: err}
	}
}

func (m *Model) exportCmd(items []model.SelectionItem) tea.Cmd {
	path := m.exportPath
	return func() tea.Msg {
		err := m.export.Save(path, items)
		return exportedMsg{path: path, count: len(items), err: err}
	}
}

func (m *Model) expireStatusCmd() tea.Cmd {
	return tea.Tick(3*time.Second, func(time.Time) tea.Msg {
		return statusExpiredMsg{}
	})
}
