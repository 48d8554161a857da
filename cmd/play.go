package cmd

import (
	"strings"

	"github.com/movira-cli/movira/catalog"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(playCmd)

	playCmd.Flags().BoolP("slug", "s", false, "Treat the argument as an exact catalog slug instead of a search query")
}

// playCmd resolves a title and starts a playback session for it.
var playCmd = &cobra.Command{
	Use:   "play [title]",
	Short: "Play a movie by title or catalog slug",
	Long: `Resolve a movie and start playback in mpv.

Without flags the argument is treated as a fuzzy title query and the closest
catalog match is played. With --slug the argument is used as the exact catalog
identifier.`,
	Args:    cobra.MinimumNArgs(1),
	Example: "  movira play inception\n  movira play --slug inception-2010",
	Run: func(cmd *cobra.Command, args []string) {
		var (
			bySlug = lo.Must(cmd.Flags().GetBool("slug"))
			target = strings.Join(args, " ")
		)

		client := catalog.NewClient()

		var (
			movie *catalog.Movie
			err   error
		)
		if bySlug {
			movie, err = client.GetDetail(cmd.Context(), target)
		} else {
			movie, err = client.FindClosest(cmd.Context(), target)
		}
		handleErr(err)

		handleErr(watch(cmd.Context(), client, movie))
	},
}
