// Package cmd implements the command-line interface for vireo.
package cmd

import (
	"fmt"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/vireo-cli/vireo/auth"
	"github.com/vireo-cli/vireo/color"
	"github.com/vireo-cli/vireo/icon"
	"github.com/vireo-cli/vireo/key"
	"github.com/vireo-cli/vireo/style"
	"github.com/vireo-cli/vireo/subtitles"
)

func init() {
	rootCmd.AddCommand(subtitlesCmd)
}

// subtitlesCmd is the parent command for the external subtitle service.
var subtitlesCmd = &cobra.Command{
	Use:   "subtitles",
	Short: "Search the external subtitle service and manage its credential",
}

func init() {
	subtitlesCmd.AddCommand(subtitlesSearchCmd)
	subtitlesSearchCmd.Flags().StringSliceP("languages", "l", nil, "Restrict results to the given language tags")
	subtitlesSearchCmd.Flags().StringP("imdb", "i", "", "Search by IMDb identifier instead of free text")
}

// subtitlesSearchCmd lists ranked subtitle candidates for a query.
var subtitlesSearchCmd = &cobra.Command{
	Use:     "search [query]",
	Short:   "Search subtitle candidates by release name or IMDb identifier",
	Args:    cobra.MinimumNArgs(0),
	Example: "  vireo subtitles search \"The Expedition 2021\" -l en,de",
	Run: func(cmd *cobra.Command, args []string) {
		query := strings.Join(args, " ")
		imdbID := lo.Must(cmd.Flags().GetString("imdb"))
		if query == "" && imdbID == "" {
			handleErr(fmt.Errorf("a query or --imdb is required"))
		}

		languages := lo.Must(cmd.Flags().GetStringSlice("languages"))
		if len(languages) == 0 {
			languages = viper.GetStringSlice(key.SubtitlesLanguages)
		}

		candidates, err := subtitles.Search(cmd.Context(), imdbID, query, languages)
		handleErr(err)

		candidates = subtitles.FilterLanguages(candidates, languages)
		if len(candidates) == 0 {
			fmt.Println(style.Faint("no subtitles found"))
			return
		}

		for _, candidate := range subtitles.Rank(candidates, query) {
			fmt.Printf("%s %s %s\n",
				icon.Get(icon.Subtitle),
				candidate.String(),
				style.Faint(fmt.Sprintf("rating %.1f, %d downloads", candidate.Rating, candidate.Downloads)),
			)
		}
	},
}

func init() {
	subtitlesCmd.AddCommand(subtitlesLoginCmd)
	subtitlesCmd.AddCommand(subtitlesLogoutCmd)
}

// subtitlesLoginCmd stores the service API key in the system keyring.
var subtitlesLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Store the subtitle service API key in the system keyring",
	Run: func(cmd *cobra.Command, args []string) {
		var token string
		prompt := &survey.Password{Message: "API key:"}
		handleErr(survey.AskOne(prompt, &token, survey.WithValidator(survey.Required)))

		handleErr(auth.SetSubtitleKey(token))
		fmt.Printf("%s credential stored\n", style.Fg(color.Green)(icon.Get(icon.Success)))
	},
}

// subtitlesLogoutCmd removes the stored service API key.
var subtitlesLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove the subtitle service API key from the system keyring",
	Run: func(cmd *cobra.Command, args []string) {
		handleErr(auth.DeleteSubtitleKey())
		fmt.Printf("%s credential removed\n", icon.Get(icon.Success))
	},
}
