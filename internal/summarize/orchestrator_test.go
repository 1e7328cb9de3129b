package summarize

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/wilbur182/chatvault/internal/model"
)

type fakeClock struct{ t time.Time }

func (f fakeClock) Now() time.Time { return f.t }

type fakeGenerator struct {
	calls      int
	failTimes  int // number of leading calls that fail with a retryable error
	fatal      bool
	response   string
}

func (f *fakeGenerator) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	f.calls++
	if f.fatal {
		return nil, &model.GeneratorError{Kind: model.GenUnauthorized, Reason: "bad key"}
	}
	if f.calls <= f.failTimes {
		return nil, &model.GeneratorError{Kind: model.GenRateLimited, Reason: "slow down"}
	}
	return &GenerateResponse{Text: f.response, ModelUsed: "test-model"}, nil
}

func sampleTurn(sessionID string, n int) model.Turn {
	t := model.NewTurn(sessionID, n, n*2)
	t.EndSequence = n*2 + 1
	t.FirstUserPreview = "please fix the bug"
	t.FirstAssistantPreview = "fixed it"
	return *t
}

func TestGenerateTurnSummary_RendersPromptAndRecordsVersion(t *testing.T) {
	gen := &fakeGenerator{response: "user asked for a fix; assistant fixed it"}
	o := &Orchestrator{Generator: gen, Clock: fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}}

	turn := sampleTurn("sess-1", 0)
	ts, err := o.GenerateTurnSummary(context.Background(), turn)
	require.NoError(t, err)
	require.Equal(t, "user asked for a fix; assistant fixed it", ts.Summary)
	require.Equal(t, 1, ts.PromptVersion)
	require.Equal(t, "test-model", ts.ModelUsed)
}

func TestGenerateTurnSummary_RetriesRetryableErrors(t *testing.T) {
	gen := &fakeGenerator{failTimes: 2, response: "ok"}
	o := &Orchestrator{Generator: gen, Clock: SystemClock{}}

	_, err := o.GenerateTurnSummary(context.Background(), sampleTurn("sess-1", 0))
	require.NoError(t, err)
	require.Equal(t, 3, gen.calls)
}

func TestGenerateTurnSummary_NonRetryableFailsImmediately(t *testing.T) {
	gen := &fakeGenerator{fatal: true}
	o := &Orchestrator{Generator: gen, Clock: SystemClock{}}

	_, err := o.GenerateTurnSummary(context.Background(), sampleTurn("sess-1", 0))
	require.Error(t, err)
	require.Equal(t, 1, gen.calls)
}

func TestGenerateSessionSummary_SkipsWhenNoTurnSummaries(t *testing.T) {
	o := &Orchestrator{Generator: &fakeGenerator{}, Clock: SystemClock{}}
	_, err := o.GenerateSessionSummary(context.Background(), "sess-1", nil)
	require.ErrorIs(t, err, ErrNoTurnSummaries)
}

func TestBulkSweep_PartialFailureDoesNotAbortSweep(t *testing.T) {
	goodGen := &fakeGenerator{response: "fine"}
	o := &Orchestrator{Generator: goodGen, Clock: SystemClock{}}

	items := []SweepItem{
		{SessionID: "good-session", Turns: []model.Turn{sampleTurn("good-session", 0)}},
	}
	result := o.BulkSweep(context.Background(), items, 2)
	require.Len(t, result.TurnSummaries, 1)
	require.Len(t, result.SessionSummaries, 1)
	require.Empty(t, result.Failures)

	badGen := &fakeGenerator{fatal: true}
	oBad := &Orchestrator{Generator: badGen, Clock: SystemClock{}}
	badItems := []SweepItem{
		{SessionID: "bad-session", Turns: []model.Turn{sampleTurn("bad-session", 0)}},
	}
	badResult := oBad.BulkSweep(context.Background(), badItems, 2)
	require.Empty(t, badResult.TurnSummaries)
	require.Len(t, badResult.Failures, 1)
	require.Equal(t, "bad-session", badResult.Failures[0].SessionID)
}
