package model

import "time"

// Turn is one user-initiated dialogue unit, detected (not generated) from
// a session's message stream.
type Turn struct {
	SessionID         string
	TurnNumber        int
	StartSequence     int
	EndSequence       int
	FirstUserMsgID    string // empty iff TurnNumber == 0 and the session opens without a user message

	TotalMessages     int
	UserMessages      int
	AssistantMessages int
	SystemMessages    int

	KindCounts map[MessageKind]int

	TotalTokens     int64
	UserTokens      int64
	AssistantTokens int64

	ToolCallCount int
	ToolSuccess   int
	ToolError     int
	ToolUsage     map[string]int

	FilesRead     []string
	FilesWritten  []string
	FilesModified []string

	LinesAdded   int
	LinesRemoved int

	BashCommandCount int
	BashSuccess      int
	BashError        int
	CommandsExecuted []string

	FirstUserPreview      string
	FirstAssistantPreview string

	StartTime time.Time
	EndTime   time.Time
}

// NewTurn allocates a Turn with its map/slice fields ready for a single
// aggregation pass.
func NewTurn(sessionID string, turnNumber, startSeq int) *Turn {
	return &Turn{
		SessionID:     sessionID,
		TurnNumber:    turnNumber,
		StartSequence: startSeq,
		EndSequence:   startSeq,
		KindCounts:    make(map[MessageKind]int),
		ToolUsage:     make(map[string]int),
		FilesRead:     []string{},
		FilesWritten:  []string{},
		FilesModified: []string{},
		CommandsExecuted: []string{},
	}
}

// UniqueFilesTouched is the cardinality of the union of FilesRead,
// FilesWritten, and FilesModified.
func (t *Turn) UniqueFilesTouched() int {
	set := make(map[string]struct{}, len(t.FilesRead)+len(t.FilesWritten)+len(t.FilesModified))
	for _, f := range t.FilesRead {
		set[f] = struct{}{}
	}
	for _, f := range t.FilesWritten {
		set[f] = struct{}{}
	}
	for _, f := range t.FilesModified {
		set[f] = struct{}{}
	}
	return len(set)
}

// DurationSeconds is EndTime - StartTime in seconds.
func (t *Turn) DurationSeconds() float64 {
	return t.EndTime.Sub(t.StartTime).Seconds()
}

// TurnSummary is a later, LLM-generated enrichment of a detected Turn.
type TurnSummary struct {
	SessionID       string
	TurnNumber      int
	StartSequence   int
	EndSequence     int
	UserIntent      string
	AssistantAction string
	Summary         string
	TurnType        *TurnType
	KeyTopics       []string
	DecisionsMade   []string
	CodeConcepts    []string
	StartTime       time.Time
	EndTime         time.Time
	ModelUsed       string
	PromptVersion   int
	GeneratedAt     time.Time
}

// SessionSummary is the single whole-session LLM-generated enrichment.
type SessionSummary struct {
	SessionID        string
	Title            string
	Summary          string
	PrimaryGoal      string
	Outcome          string
	TechnologiesUsed []string
	GeneratedAt      time.Time
}
