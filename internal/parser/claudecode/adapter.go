// Package claudecode implements the D1 dialect: JSONL with a session
// document on line 1 and message events on the following lines, generalized
// from the teacher's single-adapter claudecode implementation into a
// dialect parser over the canonical model.
package claudecode

import (
	"bufio"
	"encoding/json"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wilbur182/chatvault/internal/model"
	"github.com/wilbur182/chatvault/internal/parser"
	"github.com/wilbur182/chatvault/internal/parser/shared"
)

// scannerBufPool recycles the large line buffers bufio.Scanner needs for
// multi-megabyte transcript lines, avoiding a fresh allocation per file.
var scannerBufPool = sync.Pool{
	New: func() any {
		buf := make([]byte, 64*1024)
		return &buf
	},
}

const maxLineSize = 16 * 1024 * 1024

// Adapter decodes D1 (ClaudeCode) transcripts.
type Adapter struct{}

func New() *Adapter { return &Adapter{} }

var _ parser.StreamingParser = (*Adapter)(nil)

type header struct {
	ID           string       `json:"id"`
	SessionID    string       `json:"sessionId"`
	UUID         string       `json:"uuid"`
	CreatedAt    string       `json:"created_at"`
	ChatMessages []rawMessage `json:"chat_messages"`
}

type rawMessage struct {
	Type          string          `json:"type"`
	SessionID     string          `json:"sessionId"`
	UUID          string          `json:"uuid"`
	Timestamp     string          `json:"timestamp"`
	Message       *innerMessage   `json:"message"`
	ToolUseResult *toolUseResult  `json:"toolUseResult"`
}

type innerMessage struct {
	Role    string          `json:"role"`
	Content json.RawMessage `json:"content"`
}

type toolUseResult struct {
	Stdout      string `json:"stdout"`
	Stderr      string `json:"stderr"`
	Interrupted bool   `json:"interrupted"`
}

// Validate is a cheap sniff: line 1 must decode as JSON and carry one of
// the recognized session-identifier keys.
func (a *Adapter) Validate(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), maxLineSize)
	if !sc.Scan() {
		return false, nil
	}
	var h header
	if err := json.Unmarshal(sc.Bytes(), &h); err != nil {
		return false, nil
	}
	return headerID(h) != "", nil
}

func headerID(h header) string {
	switch {
	case h.ID != "":
		return h.ID
	case h.SessionID != "":
		return h.SessionID
	case h.UUID != "":
		return h.UUID
	default:
		return ""
	}
}

// Parse fully decodes a single D1 transcript file.
func (a *Adapter) Parse(path string) (parser.SessionMessages, error) {
	var result parser.SessionMessages
	var firstErr error
	err := a.ParseStreaming(path, func(s *model.Session, m model.Message) error {
		if result.Session == nil {
			result.Session = s
		}
		result.Messages = append(result.Messages, m)
		return nil
	})
	if err != nil {
		return result, err
	}
	if result.Session != nil {
		if serr := result.Session.SetMessageCount(len(result.Messages)); serr != nil {
			return result, serr
		}
	}
	return result, firstErr
}

// ParseStreaming decodes a D1 transcript line by line, invoking onPair once
// per decoded message without retaining the full message list.
func (a *Adapter) ParseStreaming(path string, onPair parser.OnPair) error {
	f, err := os.Open(path)
	if err != nil {
		return &model.ParseError{Kind: model.ParseHeader, Path: path, Reason: "cannot open file", Wrapped: err}
	}
	defer f.Close()

	fingerprint, err := shared.Fingerprint(path)
	if err != nil {
		return &model.ParseError{Kind: model.ParseHeader, Path: path, Reason: "cannot fingerprint file", Wrapped: err}
	}

	bufPtr := scannerBufPool.Get().(*[]byte)
	defer scannerBufPool.Put(bufPtr)

	sc := bufio.NewScanner(f)
	sc.Buffer(*bufPtr, maxLineSize)

	if !sc.Scan() {
		return &model.ParseError{Kind: model.ParseHeader, Path: path, Reason: "empty file"}
	}
	var h header
	if err := json.Unmarshal(sc.Bytes(), &h); err != nil {
		return &model.ParseError{Kind: model.ParseHeader, Path: path, Reason: "malformed_header: " + err.Error()}
	}
	id := headerID(h)
	if id == "" {
		return &model.ParseError{Kind: model.ParseHeader, Path: path, Reason: "malformed_header: no recognizable session identifier"}
	}
	if _, err := uuid.Parse(id); err != nil {
		return &model.ParseError{Kind: model.ParseHeader, Path: path, Reason: "invalid_uuid: " + id}
	}

	startTime := parseTime(h.CreatedAt)
	sess, err := model.NewSession(id, model.ProviderClaudeCode, path, fingerprint, startTime, time.Now())
	if err != nil {
		return err
	}

	seq := 0
	emit := func(rm rawMessage) error {
		if rm.Message == nil {
			return nil
		}
		role := normalizeRole(rm.Message.Role)
		flat := flattenContent(rm.Message.Content)
		applyEnrichment(flat.ToolResults, rm.ToolUseResult)

		ts := parseTime(rm.Timestamp)
		msg, err := model.NewMessage("", sess.ID, role, flat.Content, ts, seq)
		if err != nil {
			return &model.ParseError{Kind: model.ParseTruncated, Path: path, Reason: err.Error(), AtSeq: seq}
		}
		msg.ToolUses = flat.ToolUses
		msg.ToolResults = flat.ToolResults
		msg.Thinking = flat.Thinking
		seq++
		return onPair(sess, *msg)
	}

	for _, rm := range h.ChatMessages {
		if err := emit(rm); err != nil {
			return err
		}
	}

	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var rm rawMessage
		if err := json.Unmarshal(line, &rm); err != nil {
			return &model.ParseError{Kind: model.ParseTruncated, Path: path, Reason: "malformed line: " + err.Error(), AtSeq: seq}
		}
		if rm.Type == "summary" {
			continue
		}
		if err := emit(rm); err != nil {
			return err
		}
	}
	if err := sc.Err(); err != nil {
		return &model.ParseError{Kind: model.ParseTruncated, Path: path, Reason: err.Error(), AtSeq: seq, Wrapped: err}
	}
	return nil
}

func normalizeRole(raw string) model.Role {
	switch raw {
	case "assistant":
		return model.RoleAssistant
	case "system":
		return model.RoleSystem
	default:
		return model.RoleUser
	}
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	return time.Time{}
}

// flattenContent decodes a message's content field, which is either a
// plain string or an array of typed content blocks.
func flattenContent(raw json.RawMessage) shared.FlattenResult {
	if len(raw) == 0 {
		return shared.FlattenResult{}
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return shared.FlattenResult{Content: s}
	}
	var blocks []shared.ContentBlock
	if err := json.Unmarshal(raw, &blocks); err == nil {
		return shared.Flatten(blocks)
	}
	return shared.FlattenResult{Content: string(raw)}
}

// applyEnrichment attaches a sibling toolUseResult's stdout/stderr/
// interrupted fields to the first tool_result emitted by this event, per
// the D1 "conversation" shape's enrichment rule.
func applyEnrichment(results []model.ToolResult, enrich *toolUseResult) {
	if enrich == nil || len(results) == 0 {
		return
	}
	results[0].Details = &model.ToolResultDetails{
		Stdout:      enrich.Stdout,
		Stderr:      enrich.Stderr,
		Interrupted: enrich.Interrupted,
	}
}
