package application_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prtrack/internal/application"
	"prtrack/internal/domain/model"
)

func item(repo string, number int, title, url string, approvals int) model.SelectionItem {
	return model.SelectionItem{
		ID:        model.Identity{Repo: repo, Number: number},
		Title:     title,
		URL:       url,
		Approvals: approvals,
	}
}

func TestRender_Format(t *testing.T) {
	b := application.NewExportBuilder(2)

	out := b.Render([]model.SelectionItem{
		item("owner/repo", 1, "Test PR Title", "https://github.com/owner/repo/pull/1", 1),
	})

	assert.Equal(t, "1. [1/2 Approval] [Test PR Title](https://github.com/owner/repo/pull/1)\n", out)
}

func TestRender_SequentialNumberingAfterUnmarkRemarkCycles(t *testing.T) {
	s := application.NewSelectionSession()
	a := makePR("org/repo", 1, 0)
	b := makePR("org/repo", 2, 1)
	c := makePR("org/repo", 3, 2)

	s.Toggle(a)
	s.Toggle(b)
	s.Toggle(c)
	s.Toggle(b) // unmark
	s.Toggle(b) // remark, now last

	out := application.NewExportBuilder(2).Render(s.List())

	lines := []string{
		"1. [0/2 Approval] [Test PR](https://github.com/org/repo/pull/1)",
		"2. [2/2 Approval] [Test PR](https://github.com/org/repo/pull/3)",
		"3. [1/2 Approval] [Test PR](https://github.com/org/repo/pull/2)",
	}
	assert.Equal(t, lines[0]+"\n"+lines[1]+"\n"+lines[2]+"\n", out)
}

func TestRender_ConfigurableRequiredApprovals(t *testing.T) {
	b := application.NewExportBuilder(3)

	out := b.Render([]model.SelectionItem{
		item("owner/repo", 1, "PR", "https://example.com/1", 2),
	})

	assert.Equal(t, "1. [2/3 Approval] [PR](https://example.com/1)\n", out)
}

func TestSave_WritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "pr-track.md")
	b := application.NewExportBuilder(0)

	err := b.Save(path, []model.SelectionItem{
		item("owner/repo", 1, "PR One", "https://example.com/1", 0),
		item("owner/repo", 2, "PR Two", "https://example.com/2", 2),
	})
	require.NoError(t, err)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t,
		"1. [0/2 Approval] [PR One](https://example.com/1)\n2. [2/2 Approval] [PR Two](https://example.com/2)\n",
		string(content))
}

func TestSave_OverwritesPreviousExport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pr-track.md")
	b := application.NewExportBuilder(0)

	require.NoError(t, b.Save(path, []model.SelectionItem{
		item("owner/repo", 1, "Old", "https://example.com/1", 0),
	}))
	require.NoError(t, b.Save(path, []model.SelectionItem{
		item("owner/repo", 2, "New", "https://example.com/2", 1),
	}))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "1. [1/2 Approval] [New](https://example.com/2)\n", string(content))
}

func TestSave_EmptySelectionIsLocalStateConflict(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pr-track.md")
	b := application.NewExportBuilder(0)

	err := b.Save(path, nil)
	require.Error(t, err)
	assert.True(t, model.IsKind(err, model.FailureLocalConflict))

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "no file may be written for an empty selection")
}
