package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	githubadapter "prtrack/internal/adapter/driven/github"
	sqliteadapter "prtrack/internal/adapter/driven/sqlite"
	"prtrack/internal/adapter/driving/tui"
	"prtrack/internal/application"
	"prtrack/internal/config"
	"prtrack/internal/domain/model"
)

var (
	verbose bool

	// Shared state injected into commands by the persistent pre-run.
	cfg config.Config
)

var rootCmd = &cobra.Command{
	Use:   "prtrack",
	Short: "Track GitHub pull requests from the terminal",
	Long: `prtrack keeps a local cache of pull-request metadata for a configured
set of repositories and lets you browse, mark, and export them without
waiting on the GitHub API for every keystroke.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose {
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
				Level: slog.LevelDebug,
			})))
		}

		loaded, err := config.Load()
		if err != nil {
			return err
		}
		cfg = loaded
		return nil
	},
	RunE: runBrowse,
}

// Execute runs the command tree.
func Execute() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(refreshCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(reposCmd)
	rootCmd.AddCommand(cacheCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "prtrack: %v\n", err)
		os.Exit(1)
	}
}

// openStore opens the cache database and runs migrations.
func openStore() (*sqliteadapter.DB, *sqliteadapter.RecordRepo, error) {
	if dir := filepath.Dir(cfg.DBPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("create cache directory: %w", err)
		}
	}

	db, err := sqliteadapter.NewDB(cfg.DBPath)
	if err != nil {
		return nil, nil, err
	}

	if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
		db.Close()
		return nil, nil, err
	}

	return db, sqliteadapter.NewRecordRepo(db), nil
}

// scopesFromConfig expands configuration into browseable scopes: one per
// repository plus one per repository/user filter pair.
func scopesFromConfig() []model.ScopeKey {
	var scopes []model.ScopeKey
	for _, rc := range cfg.Repositories {
		scopes = append(scopes, model.ScopeKey{Repo: rc.Name})
		for _, user := range cfg.Users(rc.Name) {
			scopes = append(scopes, model.ScopeKey{Repo: rc.Name, User: user})
		}
	}
	return scopes
}

func runBrowse(cmd *cobra.Command, args []string) error {
	if len(cfg.Repositories) == 0 {
		configPath, _ := config.Path()
		return fmt.Errorf("no repositories configured: add one with 'prtrack repos add owner/repo' or edit %s", configPath)
	}

	db, store, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	// The TUI owns the terminal; route logs to a file in the config dir so
	// they don't corrupt the screen.
	if dir, err := config.Dir(); err == nil {
		if f, err := os.OpenFile(filepath.Join(dir, "prtrack.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644); err == nil {
			defer f.Close()
			level := slog.LevelInfo
			if verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: level})))
		}
	}

	client := githubadapter.NewClient(cfg.AuthToken)
	coordinator := application.NewRefreshCoordinator(client, store, cfg.StalenessThreshold())
	pages := application.NewPageView(store)
	session := application.NewSelectionSession()
	export := application.NewExportBuilder(cfg.RequiredApprovals)

	m := tui.New(coordinator, pages, session, export,
		scopesFromConfig(), cfg.PageSize, cfg.StalenessThreshold(), cfg.ExportPath)

	_, err = tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}
