// Package cmd implements the command-line interface for vireo.
package cmd

import (
	"fmt"

	"github.com/AlecAivazis/survey/v2"
	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/vireo-cli/vireo/icon"
	"github.com/vireo-cli/vireo/key"
	"github.com/vireo-cli/vireo/playback"
	"github.com/vireo-cli/vireo/stream"
	"github.com/vireo-cli/vireo/style"
	"github.com/vireo-cli/vireo/tui"
)

func init() {
	rootCmd.AddCommand(playCmd)

	playCmd.Flags().BoolP("select", "s", false, "Interactively pick the stream to play")
	playCmd.Flags().StringP("filter", "f", "", "Fuzzy-filter streams by quality or filename")
	playCmd.Flags().StringP("strategy", "S", "", "Engine order strategy (compatibility-first, quality-first)")
	lo.Must0(playCmd.RegisterFlagCompletionFunc("strategy", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return []string{"compatibility-first", "quality-first"}, cobra.ShellCompDirectiveNoFileComp
	}))
}

// playCmd starts a playback session for a resolved stream manifest.
var playCmd = &cobra.Command{
	Use:   "play [manifest]",
	Short: "Play a stream from a resolved manifest with engine fallback and resume",
	Long: `Play reads a stream manifest (the JSON output of the upstream search and
debrid resolution pipeline), picks a stream, and drives the playback session:
engines are tried in the configured order, playback resumes from the last
persisted position, and failing streams can be failed over to the next
manifest entry.`,
	Args:    cobra.ExactArgs(1),
	Example: "  vireo play ./expedition.json --select",
	Run: func(cmd *cobra.Command, args []string) {
		CheckDependencies()

		manifest, err := stream.LoadManifest(args[0])
		handleErr(err)

		streams := manifest.Streams
		if filter := lo.Must(cmd.Flags().GetString("filter")); filter != "" {
			streams = lo.Filter(streams, func(s *stream.Stream, _ int) bool {
				return fuzzy.MatchFold(filter, s.Quality) || fuzzy.MatchFold(filter, s.Filename)
			})
			if len(streams) == 0 {
				handleErr(fmt.Errorf("no streams match filter %q", filter))
			}
		}

		if strategy := lo.Must(cmd.Flags().GetString("strategy")); strategy != "" {
			viper.Set(key.PlayerEngineStrategy, strategy)
		}

		target := streams[0]
		if lo.Must(cmd.Flags().GetBool("select")) && len(streams) > 1 {
			target, err = pickStream(streams)
			handleErr(err)
		}

		for _, warning := range stream.Warnings(target) {
			fmt.Printf("%s %s\n", icon.Get(icon.Warning), style.Faint(warning))
		}

		orchestrator := playback.New(playback.Options{
			Queue: stream.NewQueue(streams),
		})

		handleErr(tui.Run(&tui.Options{
			Orchestrator: orchestrator,
			Stream:       target,
		}))
	},
}

func pickStream(streams []*stream.Stream) (*stream.Stream, error) {
	labels := lo.Map(streams, func(s *stream.Stream, _ int) string {
		label := s.String()
		if s.Filename != "" {
			label += "  " + style.Faint(s.Filename)
		}
		return label
	})

	var picked string
	prompt := &survey.Select{
		Message:  "Pick a stream",
		Options:  labels,
		PageSize: 10,
	}
	if err := survey.AskOne(prompt, &picked); err != nil {
		return nil, err
	}

	index := lo.IndexOf(labels, picked)
	if index < 0 {
		return nil, fmt.Errorf("unknown selection %q", picked)
	}

	return streams[index], nil
}
