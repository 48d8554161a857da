package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/movira-cli/movira/catalog"
	"github.com/movira-cli/movira/color"
	"github.com/movira-cli/movira/key"
	"github.com/movira-cli/movira/style"
	"github.com/movira-cli/movira/util"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"
)

func init() {
	rootCmd.AddCommand(searchCmd)

	searchCmd.Flags().IntP("page", "p", 1, "The result page to fetch")
	searchCmd.Flags().StringP("category", "C", "", "List a category instead of searching by title")
	searchCmd.Flags().BoolP("json", "j", false, "Format the output as a JSON array")
	searchCmd.SetOut(os.Stdout)
}

// searchCmd queries the catalog and lists matching titles.
var searchCmd = &cobra.Command{
	Use:     "search [query]",
	Short:   "Search the catalog for movies by title or category",
	Args:    cobra.ArbitraryArgs,
	Example: "  movira search inception\n  movira search --category action",
	PreRun: func(cmd *cobra.Command, args []string) {
		if len(args) == 0 && !cmd.Flags().Changed("category") {
			handleErr(errors.New("a title query or --category is required"))
		}
	},
	Run: func(cmd *cobra.Command, args []string) {
		var (
			page     = lo.Must(cmd.Flags().GetInt("page"))
			category = lo.Must(cmd.Flags().GetString("category"))
			asJson   = lo.Must(cmd.Flags().GetBool("json"))
		)

		client := catalog.NewClient()

		var (
			result *catalog.Page
			err    error
		)
		if category != "" {
			result, err = client.GetByCategory(cmd.Context(), category, page)
		} else {
			result, err = client.Search(cmd.Context(), args[0], page)
		}
		handleErr(err)

		if asJson {
			handleErr(json.NewEncoder(cmd.OutOrStdout()).Encode(result.Items))
			return
		}

		if len(result.Items) == 0 {
			cmd.Printf("nothing found for %q\n", args[0])
			return
		}

		limit := viper.GetInt(key.CliSearchLimit)
		items := result.Items
		if limit > 0 && len(items) > limit {
			items = items[:limit]
		}

		width := 80
		if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
			width = w
		}

		for _, movie := range items {
			line := fmt.Sprintf(
				"%s %s %s",
				style.Fg(color.Yellow)("·"),
				style.New().Bold(true).Render(movie.Name),
				style.Fg(color.Blue)(movie.Quality),
			)
			cmd.Println(style.Truncate(width)(line))

			if viper.GetBool(key.CliShowThumbURL) && movie.Thumbnail != "" {
				cmd.Printf("    %s\n", style.Faint(movie.Thumbnail))
			}
		}

		cmd.Printf(
			"\n%s on page %d of %d\n",
			util.Quantify(len(items), "result", "results"),
			result.Number,
			result.TotalPages,
		)
	},
}
