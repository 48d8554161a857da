package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/movira-cli/movira/catalog"
	"github.com/movira-cli/movira/color"
	"github.com/movira-cli/movira/favorites"
	"github.com/movira-cli/movira/style"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(favoritesCmd)

	favoritesCmd.Flags().BoolP("json", "j", false, "Format the output as a JSON array")
	favoritesCmd.SetOut(os.Stdout)
}

// favoritesCmd lists bookmarked movies.
var favoritesCmd = &cobra.Command{
	Use:     "favorites",
	Aliases: []string{"fav"},
	Short:   "Display bookmarked movies",
	Run: func(cmd *cobra.Command, args []string) {
		bookmarks, err := favorites.All()
		handleErr(err)

		if lo.Must(cmd.Flags().GetBool("json")) {
			handleErr(json.NewEncoder(cmd.OutOrStdout()).Encode(bookmarks))
			return
		}

		if len(bookmarks) == 0 {
			cmd.Println("no favorites yet")
			return
		}

		for _, b := range bookmarks {
			cmd.Printf("  %s %s %s\n", style.Fg(color.Yellow)("·"), b.Name, style.Faint(b.ContentID))
		}
	},
}

func init() {
	favoritesCmd.AddCommand(favoritesAddCmd)
}

// favoritesAddCmd bookmarks the closest catalog match for a title.
var favoritesAddCmd = &cobra.Command{
	Use:   "add [title]",
	Short: "Bookmark the closest catalog match for a title",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		client := catalog.NewClient()
		movie, err := client.FindClosest(cmd.Context(), args[0])
		handleErr(err)

		handleErr(favorites.Add(movie))
		fmt.Printf("%s added %s\n", style.Fg(color.Green)("✓"), movie.Name)
	},
}

func init() {
	favoritesCmd.AddCommand(favoritesRemoveCmd)
}

// favoritesRemoveCmd deletes a bookmark by content id.
var favoritesRemoveCmd = &cobra.Command{
	Use:   "remove [content-id]",
	Short: "Remove a bookmark",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		handleErr(favorites.Remove(args[0]))
		fmt.Printf("%s removed %s\n", style.Fg(color.Green)("✓"), args[0])
	},
}
