package application

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"prtrack/internal/domain/model"
)

// DefaultRequiredApprovals is the review policy default: a pull request wants
// two approvals. Kept configurable since it is a policy choice, not a rule
// read from branch protection.
const DefaultRequiredApprovals = 2

// DefaultExportPath is where the markdown list lands when no path is given.
const DefaultExportPath = "pr-track.md"

// ExportBuilder renders a finalized selection into the markdown list format.
type ExportBuilder struct {
	requiredApprovals int
}

// NewExportBuilder creates a builder with the given required-approval count.
// Non-positive values fall back to DefaultRequiredApprovals.
func NewExportBuilder(requiredApprovals int) *ExportBuilder {
	if requiredApprovals < 1 {
		requiredApprovals = DefaultRequiredApprovals
	}
	return &ExportBuilder{requiredApprovals: requiredApprovals}
}

// Render produces one line per item in list order, numbered sequentially
// from 1 regardless of earlier unmark/remark gaps:
//
//	N. [a/r Approval] [Title](URL)
//
// where a is the approval count frozen at mark time and r the required count.
// Deterministic and pure; no I/O.
func (b *ExportBuilder) Render(items []model.SelectionItem) string {
	var sb strings.Builder
	for i, it := range items {
		fmt.Fprintf(&sb, "%d. [%d/%d Approval] [%s](%s)\n", i+1, it.Approvals, b.requiredApprovals, it.Title, it.URL)
	}
	return sb.String()
}

// Save writes the rendered list to path, creating parent directories and
// overwriting any previous export. An empty selection is a local state
// conflict and writes nothing.
func (b *ExportBuilder) Save(path string, items []model.SelectionItem) error {
	if len(items) == 0 {
		return model.NewRefreshError(model.FailureLocalConflict, errors.New("selection is empty"))
	}

	if path == "" {
		path = DefaultExportPath
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create export directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(b.Render(items)), 0o644); err != nil {
		return fmt.Errorf("write export file: %w", err)
	}

	return nil
}
