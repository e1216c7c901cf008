package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/akio-byte/navaltutka/internal/cache"
	"github.com/akio-byte/navaltutka/internal/client"
)

var rankCmd = &cobra.Command{
	Use:   "rank [query]",
	Short: "Rank the current snapshot's events by relevance to a query",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runRank,
}

func runRank(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	c := client.New(relayURL, timeout, nil)
	data, err := c.Snapshot(ctx)
	if err != nil {
		return err
	}

	query := strings.Join(args, " ")
	items, resp := c.Rank(ctx, cache.New[client.Response[client.Ranking]](cache.DefaultTTL), query, data)
	if !resp.Succeeded() {
		return fmt.Errorf("%s: %s (request %s)", resp.Code, resp.Message, resp.RequestID)
	}
	if resp.Warning != "" {
		fmt.Fprintln(cmd.OutOrStdout(), warningStyle.Render(resp.Warning))
	}

	out := cmd.OutOrStdout()
	if len(items) == 0 {
		fmt.Fprintln(out, mutedStyle.Render("no matching events"))
		return nil
	}
	for i, it := range items {
		fmt.Fprintf(out, "%2d. %s %s\n", i+1, it.Title, mutedStyle.Render("["+string(it.Category)+"]"))
	}
	return nil
}
