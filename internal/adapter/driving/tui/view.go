package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"prtrack/internal/domain/model"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("99")).
			Padding(1, 0)

	normalStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("250"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("212")).
			Bold(true)

	markedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("2"))

	staleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("3"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("1"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Padding(1, 0)

	spinnerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205"))
)

func (m *Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(m.headerLine()))
	b.WriteString("\n")

	if m.refreshing {
		b.WriteString(m.spinner.View() + " refreshing...\n\n")
	}

	if len(m.page.Items) == 0 && !m.refreshing {
		b.WriteString(normalStyle.Render("no pull requests in this scope") + "\n")
	}

	for i, pr := range m.page.Items {
		b.WriteString(m.renderRow(i, pr) + "\n")
	}

	b.WriteString(m.footerLine())

	return b.String()
}

func (m *Model) headerLine() string {
	scope := m.scope()
	header := fmt.Sprintf("prtrack: %s", scope.Repo)
	if scope.User != "" {
		header += fmt.Sprintf(" (user: %s)", scope.User)
	}

	pages := 1
	if m.page.Total > 0 {
		pages = (m.page.Total + m.pageSize - 1) / m.pageSize
	}
	header += fmt.Sprintf("  page %d/%d", m.page.Index+1, pages)

	if !m.refreshedAt.IsZero() {
		age := time.Since(m.refreshedAt).Round(time.Second)
		if age > m.threshold {
			header += staleStyle.Render(fmt.Sprintf("  stale (%s old)", age))
		} else {
			header += fmt.Sprintf("  refreshed %s ago", age)
		}
	}

	return header
}

func (m *Model) renderRow(i int, pr model.PullRequest) string {
	mark := " "
	if m.session.Marked(pr.Identity()) {
		mark = markedStyle.Render("*")
	}

	draft := ""
	if pr.Draft {
		draft = " [draft]"
	}

	line := fmt.Sprintf("%s #%-5d %-40.40s %-15.15s %d✓%s",
		mark, pr.Number, pr.Title, pr.Author, pr.Approvals, draft)

	if i == m.cursor {
		return selectedStyle.Render("> " + line)
	}
	return normalStyle.Render("  " + line)
}

func (m *Model) footerLine() string {
	var parts []string

	if m.lastErr != nil {
		parts = append(parts, errorStyle.Render(fmt.Sprintf("error (%s): %v", model.KindOf(m.lastErr), m.lastErr)))
	}
	if m.status != "" {
		parts = append(parts, normalStyle.Render(m.status))
	}
	if n := m.session.Len(); n > 0 {
		parts = append(parts, markedStyle.Render(fmt.Sprintf("%d marked", n)))
	}

	parts = append(parts, helpStyle.Render(
		"↑/↓ move · ←/→ page · tab scope · space mark · r refresh · R refresh PR · e export · c clear · q quit",
	))

	return strings.Join(parts, "\n")
}
