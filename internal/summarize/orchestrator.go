package summarize

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/wilbur182/chatvault/internal/model"
)

// maxRetries bounds how many times a single retryable generator failure is
// retried within one sweep call before it's counted as a failure.
const maxRetries = 2

// Orchestrator drives turn- and session-level summary generation against
// one TextGenerator backend.
type Orchestrator struct {
	Generator TextGenerator
	Clock     Clock
}

// New builds an Orchestrator with the production SystemClock.
func New(generator TextGenerator) *Orchestrator {
	return &Orchestrator{Generator: generator, Clock: SystemClock{}}
}

// GenerateTurnSummary renders the turn-summary prompt from a turn's first
// user/assistant previews and asks the generator for an enrichment.
func (o *Orchestrator) GenerateTurnSummary(ctx context.Context, turn model.Turn) (*model.TurnSummary, error) {
	assistant := turn.FirstAssistantPreview
	prompt, err := TurnSummaryPromptVersion1.Render(map[string]string{
		"user_content":      turn.FirstUserPreview,
		"assistant_content": assistant,
	})
	if err != nil {
		return nil, err
	}

	resp, err := o.generateWithRetry(ctx, GenerateRequest{Prompt: prompt, MaxTokens: 256})
	if err != nil {
		return nil, err
	}

	now := o.Clock.Now()
	return &model.TurnSummary{
		SessionID:     turn.SessionID,
		TurnNumber:    turn.TurnNumber,
		StartSequence: turn.StartSequence,
		EndSequence:   turn.EndSequence,
		Summary:       resp.Text,
		StartTime:     turn.StartTime,
		EndTime:       turn.EndTime,
		ModelUsed:     resp.ModelUsed,
		PromptVersion: TurnSummaryPromptVersion1.Version,
		GeneratedAt:   now,
	}, nil
}

// GenerateSessionSummary rolls a session's turn summaries up into one
// whole-session enrichment. A session with no turn summaries yet is
// skipped (ErrNoTurnSummaries) rather than asking the generator to
// summarize nothing.
var ErrNoTurnSummaries = errors.New("chatvault: session has no turn summaries to roll up")

func (o *Orchestrator) GenerateSessionSummary(ctx context.Context, sessionID string, turnSummaries []model.TurnSummary) (*model.SessionSummary, error) {
	if len(turnSummaries) == 0 {
		return nil, ErrNoTurnSummaries
	}

	var sb strings.Builder
	for _, ts := range turnSummaries {
		fmt.Fprintf(&sb, "Turn %d: %s\n", ts.TurnNumber, ts.Summary)
	}

	prompt, err := SessionSummaryPromptVersion1.Render(map[string]string{"turn_summaries": sb.String()})
	if err != nil {
		return nil, err
	}

	resp, err := o.generateWithRetry(ctx, GenerateRequest{Prompt: prompt, MaxTokens: 512})
	if err != nil {
		return nil, err
	}

	return &model.SessionSummary{
		SessionID:   sessionID,
		Summary:     resp.Text,
		GeneratedAt: o.Clock.Now(),
	}, nil
}

func (o *Orchestrator) generateWithRetry(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		resp, err := o.Generator.Generate(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		var genErr *model.GeneratorError
		if !errors.As(err, &genErr) || !genErr.Retryable() {
			return nil, err
		}
	}
	return nil, lastErr
}

// SweepItem is one session's worth of work for BulkSweep: its detected
// turns and the session it belongs to.
type SweepItem struct {
	SessionID string
	Turns     []model.Turn
}

// SweepResult tallies BulkSweep's outcome. A single session's failure
// never aborts the sweep — it's recorded here and the sweep continues.
type SweepResult struct {
	TurnSummaries   []model.TurnSummary
	SessionSummaries []model.SessionSummary
	Failures        []SweepFailure
}

// SweepFailure names the session/turn a generation attempt failed on.
type SweepFailure struct {
	SessionID  string
	TurnNumber int // -1 for a session-level summary failure
	Err        error
}

// BulkSweep generates turn summaries (and, for each session with at least
// one turn summarized, a session summary from those turn summaries) across
// items concurrently, bounded by
// concurrency, tolerating individual failures the way a partial-coverage
// sweep must: one bad session must not stop the rest from being
// processed. Concurrency bound mirrors the teacher's pack-wide use of
// golang.org/x/sync/errgroup for bounded fan-out.
func (o *Orchestrator) BulkSweep(ctx context.Context, items []SweepItem, concurrency int) SweepResult {
	if concurrency <= 0 {
		concurrency = 4
	}

	var mu sync.Mutex
	var result SweepResult

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for _, item := range items {
		item := item
		g.Go(func() error {
			var perSession []model.TurnSummary
			for _, turn := range item.Turns {
				ts, err := o.GenerateTurnSummary(gctx, turn)
				mu.Lock()
				if err != nil {
					result.Failures = append(result.Failures, SweepFailure{SessionID: item.SessionID, TurnNumber: turn.TurnNumber, Err: err})
				} else {
					result.TurnSummaries = append(result.TurnSummaries, *ts)
					perSession = append(perSession, *ts)
				}
				mu.Unlock()
			}

			if len(perSession) == 0 {
				return nil
			}
			ss, err := o.GenerateSessionSummary(gctx, item.SessionID, perSession)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Failures = append(result.Failures, SweepFailure{SessionID: item.SessionID, TurnNumber: -1, Err: err})
				return nil
			}
			result.SessionSummaries = append(result.SessionSummaries, *ss)
			return nil
		})
	}
	// BulkSweep never propagates a member error through errgroup's Wait: each
	// failure is tallied in SweepResult instead, so the group's Go funcs
	// always return nil and Wait's error is unused.
	_ = g.Wait()
	return result
}
