package main

import (
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	configPath string
	relayURL   string
	timeout    time.Duration
)

var (
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#E5484D")).Bold(true)
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#F5A524"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#8B949E"))
)

var rootCmd = &cobra.Command{
	Use:   "relay",
	Short: "navaltutka AI relay",
	Long: `relay serves the events dashboard API: the snapshot, the daily brief
export, search ingest and the Gemini-backed analysis endpoints.

Use "relay serve" to run the server, or "relay brief" and "relay ask" to talk
to a running relay from the terminal.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "Path to the YAML config file")
	rootCmd.PersistentFlags().StringVar(&relayURL, "relay", "http://localhost:8080", "Base URL of a running relay")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "Timeout for one-shot relay calls")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(briefCmd)
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(rankCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("error: ")+err.Error())
		os.Exit(1)
	}
}
