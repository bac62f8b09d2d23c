package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/ytget/ytgrab/internal/config"
	"github.com/ytget/ytgrab/internal/history"
	"github.com/ytget/ytgrab/internal/model"
)

// NoHistoryMessage is printed when nothing was recorded yet
const NoHistoryMessage = "No downloads recorded yet."

func newHistoryCmd(app *App) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent downloads",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s := config.LoadSettings()
			if s.HistoryPath == "" {
				fmt.Fprintln(app.Out, NoHistoryMessage)
				return nil
			}

			store, err := history.Open(s.HistoryPath)
			if err != nil {
				return err
			}
			defer store.Close()

			entries, err := store.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintln(app.Out, NoHistoryMessage)
				return nil
			}

			tw := tabwriter.NewWriter(app.Out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "STARTED\tSTATUS\tTITLE\tSIZE\tRESULT")
			for _, e := range entries {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
					e.StartedAt.Local().Format(time.DateTime),
					e.Status,
					entryTitle(e),
					entrySize(e),
					entryResult(e),
				)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", history.DefaultListLimit, "Number of entries to show")
	return cmd
}

func entryTitle(e history.Entry) string {
	if e.Title != "" {
		return e.Title
	}
	return e.URL
}

func entrySize(e history.Entry) string {
	if e.FileSize <= 0 {
		return "-"
	}
	return humanize.Bytes(uint64(e.FileSize))
}

func entryResult(e history.Entry) string {
	if e.Status == model.TaskStatusError {
		return e.Error
	}
	return e.OutputPath
}
