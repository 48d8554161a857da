// Package cmd implements the command-line interface for movira.
package cmd

import (
	"fmt"
	"os"
	"strings"

	cc "github.com/ivanpirog/coloredcobra"
	"github.com/movira-cli/movira/color"
	"github.com/movira-cli/movira/constant"
	"github.com/movira-cli/movira/key"
	"github.com/movira-cli/movira/log"
	"github.com/movira-cli/movira/style"
	"github.com/movira-cli/movira/util"
	"github.com/movira-cli/movira/where"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	rootCmd.Flags().BoolP("version", "v", false, "Print the application version")
	rootCmd.Flags().BoolP("continue", "c", false, "Resume playback from the most recent history entry")

	rootCmd.PersistentFlags().BoolP("write-history", "H", true, "Persist playback progress to the localized watch history")
	lo.Must0(viper.BindPFlag(key.HistorySaveOnWatch, rootCmd.PersistentFlags().Lookup("write-history")))

	rootCmd.PersistentFlags().BoolP("resume", "r", true, "Offer to continue partially watched content")
	lo.Must0(viper.BindPFlag(key.ResumeAuto, rootCmd.PersistentFlags().Lookup("resume")))

	rootCmd.PersistentFlags().BoolP("browser-fingerprint", "B", true, "Mimic a desktop browser TLS fingerprint for embed page requests")
	lo.Must0(viper.BindPFlag(key.NetworkBrowserFingerprint, rootCmd.PersistentFlags().Lookup("browser-fingerprint")))

	// Cleanup of localized temporary files on application startup.
	go func() {
		_ = util.Delete(where.Temp())
	}()
}

// rootCmd defines the entry point for the movira application.
var rootCmd = &cobra.Command{
	Use:   constant.Movira,
	Short: "A minimalist command-line interface for movie discovery and playback",
	Long: constant.Movira + "\n" +
		style.New().Italic(true).Foreground(color.HiRed).Render("    - A minimalist command-line interface for movie discovery and playback"),
	Run: func(cmd *cobra.Command, args []string) {
		if cmd.Flags().Changed("version") {
			versionCmd.Run(versionCmd, args)
			return
		}

		if lo.Must(cmd.Flags().GetBool("continue")) {
			handleErr(continueWatching(cmd.Context()))
			return
		}

		handleErr(browse(cmd.Context()))
	},
}

// Execute initializes child command routing and processes the CLI entry point.
func Execute() {
	if viper.GetBool(key.CliColored) {
		cc.Init(&cc.Config{
			RootCmd:       rootCmd,
			Headings:      cc.HiCyan + cc.Bold + cc.Underline,
			Commands:      cc.HiYellow + cc.Bold,
			Example:       cc.Italic,
			ExecName:      cc.Bold,
			Flags:         cc.Bold,
			FlagsDataType: cc.Italic + cc.HiBlue,
		})
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func handleErr(err error) {
	if err != nil {
		log.Error(err)
		_, _ = fmt.Fprintf(os.Stderr, "%s %s\n", style.Fg(color.Red)("✗"), strings.Trim(err.Error(), " \n"))
		os.Exit(1)
	}
}
