package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/movira-cli/movira/color"
	"github.com/movira-cli/movira/history"
	"github.com/movira-cli/movira/style"
	"github.com/movira-cli/movira/util"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().BoolP("json", "j", false, "Format the output as a JSON array")
	historyCmd.SetOut(os.Stdout)
}

// historyCmd lists watch history grouped by day.
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Display the watch history grouped by day",
	Run: func(cmd *cobra.Command, args []string) {
		entries, err := history.All()
		handleErr(err)

		if lo.Must(cmd.Flags().GetBool("json")) {
			handleErr(json.NewEncoder(cmd.OutOrStdout()).Encode(entries))
			return
		}

		if len(entries) == 0 {
			cmd.Println("watch history is empty")
			return
		}

		for i, bucket := range history.Group(entries) {
			if i > 0 {
				cmd.Println()
			}
			cmd.Println(style.New().Bold(true).Foreground(color.HiPurple).Render(bucket.Label))

			for _, entry := range bucket.Entries {
				progress := fmt.Sprintf(
					"%s / %s",
					util.FormatClock(entry.Position),
					util.FormatClock(entry.Duration),
				)
				cmd.Printf(
					"  %s %s %s\n",
					style.Fg(color.Yellow)("·"),
					entry.Name,
					style.Faint(progress),
				)
			}
		}
	},
}

func init() {
	historyCmd.AddCommand(historyRemoveCmd)
}

// historyRemoveCmd deletes a single watch record by content id.
var historyRemoveCmd = &cobra.Command{
	Use:   "remove [content-id]",
	Short: "Remove a single entry from the watch history",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		handleErr(history.Remove(args[0]))
		fmt.Printf("%s removed %s\n", style.Fg(color.Green)("✓"), args[0])
	},
}

func init() {
	historyCmd.AddCommand(historyClearCmd)
}

// historyClearCmd erases the entire watch history.
var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Erase the entire watch history",
	Run: func(cmd *cobra.Command, args []string) {
		handleErr(history.Clear())
		fmt.Printf("%s history cleared\n", style.Fg(color.Green)("✓"))
	},
}
