package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var cleanupMaxAge time.Duration

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and maintain the local cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print cache statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, store, err := openStore()
		if err != nil {
			return err
		}
		defer db.Close()

		stats, err := store.Stats(cmd.Context())
		if err != nil {
			return err
		}

		fmt.Printf("records:      %d\n", stats.Records)
		fmt.Printf("repositories: %d\n", stats.Repositories)
		fmt.Printf("scopes:       %d\n", stats.Scopes)
		return nil
	},
}

var cacheCleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Remove cached records older than --max-age",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, store, err := openStore()
		if err != nil {
			return err
		}
		defer db.Close()

		cutoff := time.Now().Add(-cleanupMaxAge)
		removed, err := store.DeleteOlderThan(cmd.Context(), cutoff)
		if err != nil {
			return err
		}

		fmt.Printf("removed %d record(s) older than %s\n", removed, cleanupMaxAge)
		return nil
	},
}

func init() {
	cacheCleanupCmd.Flags().DurationVar(&cleanupMaxAge, "max-age", 30*24*time.Hour, "maximum age of cached records")
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheCleanupCmd)
}
