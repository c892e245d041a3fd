package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	githubadapter "prtrack/internal/adapter/driven/github"
	"prtrack/internal/application"
	"prtrack/internal/domain/model"
)

var (
	refreshForce bool
	refreshUser  string
)

var refreshCmd = &cobra.Command{
	Use:   "refresh [owner/repo]",
	Short: "Refresh the cache for configured repositories",
	Long: `Refresh fetches pull-request data for stale scopes and merges it into
the local cache. Without arguments every configured repository is refreshed;
with one, only that repository. Scopes refreshed within the staleness
threshold are skipped unless --force is given.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, store, err := openStore()
		if err != nil {
			return err
		}
		defer db.Close()

		client := githubadapter.NewClient(cfg.AuthToken)
		coordinator := application.NewRefreshCoordinator(client, store, cfg.StalenessThreshold())

		scopes := scopesFromConfig()
		if len(args) == 1 {
			if cfg.Repo(args[0]) == nil {
				return fmt.Errorf("repository %s is not configured", args[0])
			}
			scopes = []model.ScopeKey{{Repo: args[0], User: refreshUser}}
		} else if refreshUser != "" {
			return errors.New("--user requires an explicit repository argument")
		}

		var failures int
		for _, scope := range scopes {
			outcome, err := coordinator.EnsureFresh(cmd.Context(), scope, refreshForce)
			switch {
			case err != nil:
				failures++
				fmt.Printf("%-50s %s: %v\n", scope.Key(), model.KindOf(err), err)
			case outcome.FromCache:
				fmt.Printf("%-50s fresh (%d PRs, refreshed %s)\n",
					scope.Key(), len(outcome.Records), outcome.RefreshedAt.Local().Format("15:04:05"))
			default:
				fmt.Printf("%-50s refreshed (%d PRs)\n", scope.Key(), len(outcome.Records))
			}
		}

		if failures > 0 {
			return fmt.Errorf("%d scope(s) failed to refresh", failures)
		}
		return nil
	},
}

func init() {
	refreshCmd.Flags().BoolVarP(&refreshForce, "force", "f", false, "refresh even when the cache is fresh")
	refreshCmd.Flags().StringVarP(&refreshUser, "user", "u", "", "refresh only the given user's scope")
}
