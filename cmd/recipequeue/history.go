package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/cwygoda/recipequeue/internal/adapter/export"
	"github.com/cwygoda/recipequeue/internal/adapter/sqlite"
	"github.com/cwygoda/recipequeue/internal/domain"
)

func newHistoryCmd(configPath *string) *cobra.Command {
	var (
		limit    int
		xlsxPath string
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recently finished jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			repo, err := sqlite.New(cfg.DBPath)
			if err != nil {
				return fmt.Errorf("open history database: %w", err)
			}
			defer repo.Close()

			outcomes, err := repo.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}

			if xlsxPath != "" {
				data, err := export.OutcomesXLSX(outcomes)
				if err != nil {
					return err
				}
				if err := os.WriteFile(xlsxPath, data, 0644); err != nil {
					return fmt.Errorf("write %s: %w", xlsxPath, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "wrote %d outcomes to %s (%s)\n", len(outcomes), xlsxPath, humanize.Bytes(uint64(len(data))))
				return nil
			}
			return printHistory(cmd.Context(), cmd.OutOrStdout(), repo, outcomes)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "number of outcomes to show")
	cmd.Flags().StringVar(&xlsxPath, "xlsx", "", "write the outcomes to an Excel file instead")
	return cmd
}

type outcomeCounter interface {
	CountByStatus(ctx context.Context, status domain.JobStatus) (int64, error)
}

func printHistory(ctx context.Context, w io.Writer, counter outcomeCounter, outcomes []sqlite.Outcome) error {
	saved, err := counter.CountByStatus(ctx, domain.StatusSuccess)
	if err != nil {
		return err
	}
	failed, err := counter.CountByStatus(ctx, domain.StatusError)
	if err != nil {
		return err
	}

	if len(outcomes) == 0 {
		fmt.Fprintln(w, "No finished jobs yet.")
		return nil
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Finished", "Kind", "Title", "Status", "Images"})
	for _, o := range outcomes {
		images := ""
		if o.ImageCount > 0 {
			images = strconv.Itoa(o.ImageCount)
		}
		tw.AppendRow(table.Row{humanize.Time(o.FinishedAt), o.Kind, o.Title, o.Status, images})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Title", WidthMax: 48},
		{Name: "Images", Align: text.AlignRight, AlignHeader: text.AlignLeft},
	})
	fmt.Fprintln(w, tw.Render())
	fmt.Fprintf(w, "%s saved, %s failed\n", humanize.Comma(saved), humanize.Comma(failed))
	return nil
}
