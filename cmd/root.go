/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>

*/
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "scrobbleloop",
	Short: "Repeatedly scrobble your current Last.fm track",
	Long: `scrobbleloop re-submits the track you are listening to as a Last.fm
scrobble at a fixed rate.

The serve command runs a small HTTP service: log in once through /auth,
then arm the loop with /spoof/start and disarm it with /spoof/stop.

The now and history commands inspect your current track and the
submissions the service has recorded.`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
