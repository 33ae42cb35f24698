package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/caselaw-crawler/internal/crawler"
)

type caseList struct {
	Total  int64          `json:"total"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
	Cases  []crawler.Case `json:"cases"`
}

type caseView struct {
	crawler.Case
	Documents []crawler.Document `json:"documents"`
	Images    []crawler.Image    `json:"images"`
}

func newCasesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cases",
		Short: "Inspect stored cases",
	}
	cmd.AddCommand(newCasesListCmd(), newCasesShowCmd(), newCasesDeleteCmd())
	return cmd
}

func newCasesListCmd() *cobra.Command {
	var (
		query  string
		limit  int
		offset int
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored cases, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			cases, total, err := appInstance.Store().ListCases(cmd.Context(), query, limit, offset)
			if err != nil {
				return fmt.Errorf("list cases: %w", err)
			}
			if cases == nil {
				cases = []crawler.Case{}
			}
			return printJSON(cmd.OutOrStdout(), caseList{Total: total, Limit: limit, Offset: offset, Cases: cases})
		},
	}
	cmd.Flags().StringVar(&query, "query", "", "match title, case number, court or citation")
	cmd.Flags().IntVar(&limit, "limit", 50, "page size")
	cmd.Flags().IntVar(&offset, "offset", 0, "rows to skip")
	return cmd
}

func newCasesShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one case with its documents and images",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid case id %q: %w", args[0], err)
			}
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			store := appInstance.Store()
			c, err := store.GetCase(ctx, uint(id))
			if err != nil {
				return fmt.Errorf("get case %d: %w", id, err)
			}
			docs, err := store.ListDocuments(ctx, c.ID)
			if err != nil {
				return fmt.Errorf("list documents: %w", err)
			}
			imgs, err := store.ListImages(ctx, c.ID)
			if err != nil {
				return fmt.Errorf("list images: %w", err)
			}
			return printJSON(cmd.OutOrStdout(), caseView{Case: *c, Documents: docs, Images: imgs})
		},
	}
}

func newCasesDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a case with its document and image rows",
		Long: `delete removes the case row and its document and image rows. Files
already written under the data directory are left in place.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid case id %q: %w", args[0], err)
			}
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			if err := appInstance.Store().DeleteCase(cmd.Context(), uint(id)); err != nil {
				return fmt.Errorf("delete case %d: %w", id, err)
			}
			return printJSON(cmd.OutOrStdout(), map[string]uint64{"deleted": id})
		},
	}
}
