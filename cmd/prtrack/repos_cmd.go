package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"prtrack/internal/config"
)

var reposAddUsers []string

var reposCmd = &cobra.Command{
	Use:   "repos",
	Short: "Manage tracked repositories",
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(cfg.Repositories) == 0 {
			fmt.Println("no repositories configured")
			return nil
		}
		for _, rc := range cfg.Repositories {
			if len(rc.Users) > 0 {
				fmt.Printf("%s (users: %v)\n", rc.Name, rc.Users)
			} else {
				fmt.Println(rc.Name)
			}
		}
		return nil
	},
}

var reposAddCmd = &cobra.Command{
	Use:   "add <owner/repo>",
	Short: "Track a repository",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		if cfg.Repo(name) != nil {
			return fmt.Errorf("repository %s is already tracked", name)
		}

		cfg.Repositories = append(cfg.Repositories, config.RepoConfig{Name: name, Users: reposAddUsers})
		if err := config.Save(cfg); err != nil {
			return err
		}

		fmt.Printf("tracking %s\n", name)
		return nil
	},
}

var reposRemoveCmd = &cobra.Command{
	Use:   "remove <owner/repo>",
	Short: "Stop tracking a repository and purge its cached data",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		if cfg.Repo(name) == nil {
			return fmt.Errorf("repository %s is not tracked", name)
		}

		kept := cfg.Repositories[:0]
		for _, rc := range cfg.Repositories {
			if rc.Name != name {
				kept = append(kept, rc)
			}
		}
		cfg.Repositories = kept
		if err := config.Save(cfg); err != nil {
			return err
		}

		db, store, err := openStore()
		if err != nil {
			return err
		}
		defer db.Close()

		if err := store.PurgeRepository(cmd.Context(), name); err != nil {
			return err
		}

		fmt.Printf("removed %s and purged its cache\n", name)
		return nil
	},
}

func init() {
	reposAddCmd.Flags().StringSliceVar(&reposAddUsers, "user", nil, "per-repo user filter (repeatable)")
	reposCmd.AddCommand(reposAddCmd)
	reposCmd.AddCommand(reposRemoveCmd)
}
