package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"prtrack/internal/application"
	"prtrack/internal/domain/model"
)

var (
	listUser     string
	listPage     int
	listPageSize int
)

var listCmd = &cobra.Command{
	Use:   "list <owner/repo>",
	Short: "Print a page of cached pull requests",
	Long: `List reads the local cache without touching the network. Use refresh
first if the cache may be stale.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, store, err := openStore()
		if err != nil {
			return err
		}
		defer db.Close()

		scope := model.ScopeKey{Repo: args[0], User: listUser}
		pageSize := listPageSize
		if pageSize < 1 {
			pageSize = cfg.PageSize
		}

		pages := application.NewPageView(store)
		page, err := pages.Page(cmd.Context(), scope, pageSize, listPage)
		if err != nil {
			return err
		}

		if len(page.Items) == 0 {
			fmt.Printf("no cached pull requests for %s\n", scope.Key())
			return nil
		}

		for _, pr := range page.Items {
			draft := ""
			if pr.Draft {
				draft = " [draft]"
			}
			fmt.Printf("#%-5d %-50.50s %-15s %d approvals%s\n", pr.Number, pr.Title, pr.Author, pr.Approvals, draft)
		}

		pagesTotal := (page.Total + pageSize - 1) / pageSize
		fmt.Printf("page %d/%d (%d total)\n", page.Index+1, pagesTotal, page.Total)
		return nil
	},
}

func init() {
	listCmd.Flags().StringVarP(&listUser, "user", "u", "", "filter to a user's scope (author or assignee)")
	listCmd.Flags().IntVarP(&listPage, "page", "p", 0, "0-based page index")
	listCmd.Flags().IntVar(&listPageSize, "page-size", 0, "page size (defaults to config)")
}
