/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"
	"text/template"
	"time"

	"github.com/jfmyers9/scrobbleloop/internal/config"
	"github.com/jfmyers9/scrobbleloop/pkg/lastfm"
	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"
)

// nowCmd represents the now command
var nowCmd = &cobra.Command{
	Use:   "now",
	Short: "Display the track Last.fm reports as playing",
	Long: `Ask Last.fm what the configured account is listening to.

Needs a session key in lastfm.session_key (or --session-key). The
output format can be customized in ~/.config/scrobbleloop/config.yaml
using a Go template. Available fields: .Name, .Artist, .Album

Exit codes:
  0 - Track is currently playing
  1 - Nothing playing or the request failed`,
	RunE: runNow,
}

func init() {
	rootCmd.AddCommand(nowCmd)

	nowCmd.Flags().StringP("format", "f", "", "Output format template (overrides config)")
	nowCmd.Flags().IntP("width", "w", 0, "Fixed output width (0=disabled, overrides config)")
	nowCmd.Flags().String("session-key", "", "Last.fm session key (overrides config)")
}

func runNow(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if formatFlag, _ := cmd.Flags().GetString("format"); formatFlag != "" {
		cfg.OutputFormat = formatFlag
	}
	if sk, _ := cmd.Flags().GetString("session-key"); sk != "" {
		cfg.LastFM.SessionKey = sk
	}

	client, err := lastfm.NewClient(lastfm.Config{
		APIKey:    cfg.LastFM.APIKey,
		APISecret: cfg.LastFM.APISecret,
	})
	if err != nil {
		return fmt.Errorf("failed to create Last.fm client: %w", err)
	}

	track, err := client.User().NowPlaying(ctx, cfg.LastFM.SessionKey)
	if err != nil {
		return fmt.Errorf("failed to get current track: %w", err)
	}

	// Nothing playing
	if track == nil {
		os.Exit(1)
		return nil
	}

	output, err := formatTrack(track, cfg.OutputFormat)
	if err != nil {
		return fmt.Errorf("failed to format output: %w", err)
	}

	width, _ := cmd.Flags().GetInt("width")
	if width == 0 {
		width = cfg.OutputWidth
	}

	fmt.Println(padToWidth(output, width))
	return nil
}

// formatTrack applies the template to the track data
func formatTrack(track *lastfm.RecentTrack, templateStr string) (string, error) {
	tmpl, err := template.New("output").Parse(templateStr)
	if err != nil {
		return "", fmt.Errorf("invalid template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, track); err != nil {
		return "", fmt.Errorf("template execution failed: %w", err)
	}

	return buf.String(), nil
}

// padToWidth pads or truncates text to a fixed display width.
// Width is measured in display columns, so wide runes count double.
// Text longer than width ends in "...". width <= 0 disables padding.
func padToWidth(text string, width int) string {
	if width <= 0 {
		return text
	}

	const ellipsis = "..."

	currentWidth := runewidth.StringWidth(text)
	switch {
	case currentWidth < width:
		return text + strings.Repeat(" ", width-currentWidth)
	case currentWidth == width:
		return text
	}

	ellipsisWidth := runewidth.StringWidth(ellipsis)
	if width <= ellipsisWidth {
		return runewidth.Truncate(ellipsis, width, "")
	}

	// Truncate can stop one column short before a wide rune.
	result := runewidth.Truncate(text, width-ellipsisWidth, "") + ellipsis
	if w := runewidth.StringWidth(result); w < width {
		result += strings.Repeat(" ", width-w)
	}
	return result
}
