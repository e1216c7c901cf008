package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/akio-byte/navaltutka/internal/relay"
	"github.com/akio-byte/navaltutka/internal/snapshot"
	"github.com/akio-byte/navaltutka/internal/upstream"
)

// maxContextChars matches the chat context ceiling.
const maxContextChars = 12000

const (
	WarningStaleContext        = "Context reference does not match the current snapshot; answered without snapshot context"
	WarningSnapshotUnavailable = "Snapshot unavailable; answered without snapshot context"
)

// Generator is the upstream adapter as the relay service sees it.
type Generator interface {
	NewRequest(p upstream.Prompt, streaming bool) upstream.Request
	Generate(ctx context.Context, req upstream.Request) (string, error)
	Stream(ctx context.Context, req upstream.Request) (<-chan upstream.Event, error)
}

// SnapshotSource provides the current snapshot for context references.
type SnapshotSource interface {
	Get(ctx context.Context) (*snapshot.Entry, error)
}

// RelayService turns validated endpoint requests into upstream calls.
type RelayService struct {
	gen            Generator
	snapshots      SnapshotSource
	reportLanguage string
	logger         *zap.Logger
}

func NewRelayService(gen Generator, snapshots SnapshotSource, reportLanguage string, logger *zap.Logger) *RelayService {
	if reportLanguage == "" {
		reportLanguage = "English"
	}
	return &RelayService{
		gen:            gen,
		snapshots:      snapshots,
		reportLanguage: reportLanguage,
		logger:         logger,
	}
}

// chatPrompt resolves contextRef. Explicit context always wins; a reference
// that matches the current snapshot version pulls in the compact snapshot.
func (s *RelayService) chatPrompt(ctx context.Context, req *ChatRequest) (upstream.Prompt, string) {
	p := upstream.Prompt{
		Context: req.Context,
		History: req.HistoryDelta,
		Task:    chatTask(req.Message),
	}
	if req.Context != "" || req.ContextRef == "" || s.snapshots == nil {
		return p, ""
	}

	entry, err := s.snapshots.Get(ctx)
	if err != nil {
		s.logger.Warn("snapshot unavailable for context reference", zap.Error(err))
		return p, WarningSnapshotUnavailable
	}
	if entry.Data.Version() != req.ContextRef {
		return p, WarningStaleContext
	}

	p.Context = truncate(snapshot.Compact(entry.Data.Items, true), maxContextChars)
	return p, ""
}

// Chat answers in one piece. The warning is non-empty when a context
// reference could not be honoured.
func (s *RelayService) Chat(ctx context.Context, req *ChatRequest) (string, string, error) {
	p, warning := s.chatPrompt(ctx, req)
	text, err := s.gen.Generate(ctx, s.gen.NewRequest(p, false))
	return text, warning, err
}

// ChatStream starts a streamed answer.
func (s *RelayService) ChatStream(ctx context.Context, req *ChatRequest) (<-chan upstream.Event, string, error) {
	p, warning := s.chatPrompt(ctx, req)
	events, err := s.gen.Stream(ctx, s.gen.NewRequest(p, true))
	return events, warning, err
}

func (s *RelayService) Brief(ctx context.Context, req *BriefRequest) (string, error) {
	return s.gen.Generate(ctx, s.gen.NewRequest(upstream.Prompt{Task: briefTask(req.Item)}, false))
}

func (s *RelayService) Horizon(ctx context.Context, req *HorizonRequest) (string, error) {
	p := upstream.Prompt{
		Context: snapshot.Compact(req.Snapshot.Items, false),
		Task:    horizonTask,
	}
	return s.gen.Generate(ctx, s.gen.NewRequest(p, false))
}

func (s *RelayService) Report(ctx context.Context, req *ReportRequest) (string, error) {
	p := upstream.Prompt{
		Context: snapshot.Compact(req.Snapshot.Items, true),
		Task:    fmt.Sprintf(reportTask, s.reportLanguage),
	}
	if len(req.ExternalEvidence) > 0 {
		p.Evidence = compactJSON(req.ExternalEvidence)
	}
	return s.gen.Generate(ctx, s.gen.NewRequest(p, false))
}

// Rank returns the filtered ranking and a degradation warning. Only upstream
// failures are errors.
func (s *RelayService) Rank(ctx context.Context, req *RankRequest) (relay.Ranking, string, error) {
	p := upstream.Prompt{
		Context: compactJSON(req.ItemsMini),
		Task:    fmt.Sprintf(rankTask, req.Query),
	}
	text, err := s.gen.Generate(ctx, s.gen.NewRequest(p, false))
	if err != nil {
		return relay.Ranking{}, "", err
	}

	provided := make([]string, 0, len(req.ItemsMini))
	for _, it := range req.ItemsMini {
		provided = append(provided, it.ID)
	}

	ranking, warning := relay.FilterRanking(text, provided)
	if warning != "" {
		s.logger.Info("rank reply degraded", zap.String("warning", warning))
	}
	return ranking, warning, nil
}
