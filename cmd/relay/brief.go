package main

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/akio-byte/navaltutka/internal/client"
	"github.com/akio-byte/navaltutka/internal/snapshot"
)

var (
	briefSnapshotPath string
	briefRaw          bool
)

var briefCmd = &cobra.Command{
	Use:   "brief",
	Short: "Print the daily brief export",
	Long: `Fetches the markdown daily brief from a running relay and renders it for
the terminal. With --snapshot the brief is built from a local snapshot file
instead.`,
	Args: cobra.NoArgs,
	RunE: runBrief,
}

func init() {
	briefCmd.Flags().StringVar(&briefSnapshotPath, "snapshot", "", "Build the brief from this snapshot file instead of a relay")
	briefCmd.Flags().BoolVar(&briefRaw, "raw", false, "Print markdown without terminal rendering")
}

func runBrief(cmd *cobra.Command, _ []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	var md string
	if briefSnapshotPath != "" {
		entry, err := snapshot.NewStore(briefSnapshotPath, time.Minute, nil).Get(ctx)
		if err != nil {
			return err
		}
		md = snapshot.BriefMarkdown(entry.Data, time.Now())
	} else {
		var err error
		md, err = client.New(relayURL, timeout, nil).BriefExport(ctx)
		if err != nil {
			return err
		}
	}

	if briefRaw {
		fmt.Fprint(cmd.OutOrStdout(), md)
		return nil
	}
	out, err := renderMarkdown(md)
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), out)
	return nil
}

func renderMarkdown(md string) (string, error) {
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return "", fmt.Errorf("create markdown renderer: %w", err)
	}
	return renderer.Render(md)
}
