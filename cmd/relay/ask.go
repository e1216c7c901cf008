package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/akio-byte/navaltutka/internal/cache"
	"github.com/akio-byte/navaltutka/internal/client"
)

// maxHistory matches the relay's historyDelta ceiling.
const maxHistory = 8

var (
	askStream  bool
	askWithRef bool
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask the relay's analyst a question",
	Long: `Sends a chat message to a running relay. Without arguments an interactive
session starts; repeated questions in a session are answered from a
five-minute cache unless --stream is set.`,
	RunE: runAsk,
}

func init() {
	askCmd.Flags().BoolVar(&askStream, "stream", false, "Stream the answer as it is generated")
	askCmd.Flags().BoolVar(&askWithRef, "snapshot", true, "Ground answers in the relay's current snapshot")
}

type askSession struct {
	client     *client.Client
	answers    *cache.Cache[client.Response[string]]
	contextRef string
	history    []client.ChatTurn
	out        io.Writer
}

func runAsk(cmd *cobra.Command, args []string) error {
	s := &askSession{
		client:  client.New(relayURL, 0, nil),
		answers: cache.New[client.Response[string]](cache.DefaultTTL),
		out:     cmd.OutOrStdout(),
	}

	if askWithRef {
		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		data, err := s.client.Snapshot(ctx)
		cancel()
		if err != nil {
			fmt.Fprintln(s.out, warningStyle.Render("snapshot unavailable, asking without context: "+err.Error()))
		} else {
			s.contextRef = data.Version()
		}
	}

	if len(args) > 0 {
		return s.ask(cmd.Context(), strings.Join(args, " "))
	}

	fmt.Fprintln(s.out, mutedStyle.Render("Type a question, or 'exit' to quit."))
	sc := bufio.NewScanner(cmd.InOrStdin())
	for {
		fmt.Fprint(s.out, "> ")
		if !sc.Scan() {
			return sc.Err()
		}
		q := strings.TrimSpace(sc.Text())
		switch q {
		case "":
			continue
		case "exit", "quit":
			return nil
		}
		if err := s.ask(cmd.Context(), q); err != nil {
			fmt.Fprintln(s.out, errorStyle.Render(err.Error()))
		}
	}
}

func (s *askSession) ask(ctx context.Context, question string) error {
	req := client.ChatRequest{
		Message:      question,
		ContextRef:   s.contextRef,
		HistoryDelta: s.history,
	}

	var answer string
	if askStream {
		var b strings.Builder
		res, err := s.client.ChatStream(ctx, req, func(chunk string) {
			b.WriteString(chunk)
			fmt.Fprint(s.out, chunk)
		})
		fmt.Fprintln(s.out)
		if err != nil {
			return err
		}
		if res.Warning != "" {
			fmt.Fprintln(s.out, warningStyle.Render(res.Warning))
		}
		if res.Terminal.Code != "" {
			return fmt.Errorf("%s", res.Terminal.Code)
		}
		answer = b.String()
	} else {
		callCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		key := s.contextRef + "|" + question
		resp := client.Cached(callCtx, s.answers, key, func(ctx context.Context) client.Response[string] {
			return client.Call[string](ctx, s.client, client.EndpointChat, req)
		})
		if !resp.Succeeded() {
			return fmt.Errorf("%s: %s (request %s)", resp.Code, resp.Message, resp.RequestID)
		}
		if resp.Warning != "" {
			fmt.Fprintln(s.out, warningStyle.Render(resp.Warning))
		}
		answer = resp.Data

		rendered, err := renderMarkdown(answer)
		if err != nil {
			fmt.Fprintln(s.out, answer)
		} else {
			fmt.Fprint(s.out, rendered)
		}
	}

	s.remember(question, answer)
	return nil
}

func (s *askSession) remember(question, answer string) {
	s.history = append(s.history,
		client.ChatTurn{Role: "user", Content: truncate(question, 4000)},
		client.ChatTurn{Role: "assistant", Content: truncate(answer, 4000)},
	)
	if len(s.history) > maxHistory {
		s.history = s.history[len(s.history)-maxHistory:]
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
