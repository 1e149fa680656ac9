// Package cmd implements the command-line interface for vireo.
package cmd

import (
	"fmt"
	"sort"

	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/vireo-cli/vireo/color"
	"github.com/vireo-cli/vireo/history"
	"github.com/vireo-cli/vireo/icon"
	"github.com/vireo-cli/vireo/style"
	"github.com/vireo-cli/vireo/util"
)

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().BoolP("completed", "c", false, "Show only titles watched to completion")
}

// historyCmd lists the persisted watch history.
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Display the persisted watch history with resume positions",
	Run: func(cmd *cobra.Command, args []string) {
		records, err := history.Get()
		handleErr(err)

		entries := lo.Values(records)
		if lo.Must(cmd.Flags().GetBool("completed")) {
			entries = lo.Filter(entries, func(r *history.Record, _ int) bool {
				return r.Completed
			})
		}

		if len(entries) == 0 {
			fmt.Println(style.Faint("history is empty"))
			return
		}

		sort.Slice(entries, func(i, j int) bool {
			return entries[i].Timestamp.After(entries[j].Timestamp)
		})

		for _, record := range entries {
			mark := icon.Get(icon.Progress)
			if record.Completed {
				mark = icon.Get(icon.Success)
			}

			fmt.Printf("%s %s %s\n", mark, style.Bold(record.Title), style.Fg(color.Yellow)(record.Quality))
			fmt.Printf("  %s / %s  %s\n",
				util.FormatDuration(record.Position),
				util.FormatDuration(record.Duration),
				style.Faint(record.Timestamp.Format("2006-01-02 15:04")),
			)
		}

		fmt.Println()
		fmt.Println(style.Faint(util.Quantify(len(entries), "entry", "entries")))
	},
}

func init() {
	historyCmd.AddCommand(historyRemoveCmd)
	historyRemoveCmd.Flags().StringP("episode", "e", "", "Episode identifier within the title")
}

// historyRemoveCmd drops a single entry from the watch history.
var historyRemoveCmd = &cobra.Command{
	Use:   "remove [mediaID]",
	Short: "Remove a title's entry from the watch history",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		episodeID := lo.Must(cmd.Flags().GetString("episode"))
		handleErr(history.Remove(args[0], episodeID))
		fmt.Printf("%s removed\n", icon.Get(icon.Success))
	},
}
