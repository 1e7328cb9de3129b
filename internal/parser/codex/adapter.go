// Package codex implements the D2 dialect: a JSONL stream with a
// session_meta header event followed by event_msg entries, generalized
// from the teacher's codex adapter into a dialect parser over the
// canonical model.
package codex

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/wilbur182/chatvault/internal/model"
	"github.com/wilbur182/chatvault/internal/parser"
	"github.com/wilbur182/chatvault/internal/parser/shared"
)

const maxLineSize = 16 * 1024 * 1024

type Adapter struct{}

func New() *Adapter { return &Adapter{} }

var _ parser.StreamingParser = (*Adapter)(nil)

type metaLine struct {
	Type    string      `json:"type"`
	Payload sessionMeta `json:"payload"`
}

type sessionMeta struct {
	ID        string   `json:"id"`
	Timestamp string   `json:"timestamp"`
	Cwd       string   `json:"cwd"`
	Git       *gitInfo `json:"git"`
}

type gitInfo struct {
	CommitHash     string `json:"commit_hash"`
	Branch         string `json:"branch"`
	RepositoryURL  string `json:"repository_url"`
}

type eventLine struct {
	Type      string       `json:"type"`
	Timestamp string       `json:"timestamp"`
	Payload   eventPayload `json:"payload"`
}

type eventPayload struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

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
	var m metaLine
	if err := json.Unmarshal(sc.Bytes(), &m); err != nil {
		return false, nil
	}
	return m.Type == "session_meta" && m.Payload.ID != "", nil
}

func (a *Adapter) Parse(path string) (parser.SessionMessages, error) {
	var result parser.SessionMessages
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
	return result, nil
}

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

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), maxLineSize)

	if !sc.Scan() {
		return &model.ParseError{Kind: model.ParseHeader, Path: path, Reason: "empty file"}
	}
	var meta metaLine
	if err := json.Unmarshal(sc.Bytes(), &meta); err != nil || meta.Type != "session_meta" {
		return &model.ParseError{Kind: model.ParseHeader, Path: path, Reason: "malformed_header: missing session_meta"}
	}
	if meta.Payload.ID == "" {
		return &model.ParseError{Kind: model.ParseHeader, Path: path, Reason: "malformed_header: no session identifier"}
	}

	startTime := parseTime(meta.Payload.Timestamp)
	sess, err := model.NewSession(normalizeID(meta.Payload.ID), model.ProviderCodex, path, fingerprint, startTime, time.Now())
	if err != nil {
		return err
	}
	sess.ProjectName = inferProjectName(meta.Payload)

	seq := 0
	lastTimestamp := startTime
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var ev eventLine
		if err := json.Unmarshal(line, &ev); err != nil {
			return &model.ParseError{Kind: model.ParseTruncated, Path: path, Reason: "malformed line: " + err.Error(), AtSeq: seq}
		}
		if ts := parseTime(ev.Timestamp); !ts.IsZero() {
			lastTimestamp = ts
		}
		if ev.Type != "event_msg" {
			continue // unrecognized types are skippable, per design notes
		}
		text := strings.TrimSpace(ev.Payload.Message)
		if text == "" {
			continue
		}
		role := model.RoleAssistant
		if ev.Payload.Type == "user_message" {
			role = model.RoleUser
		}
		msg, err := model.NewMessage("", sess.ID, role, text, lastTimestamp, seq)
		if err != nil {
			return &model.ParseError{Kind: model.ParseTruncated, Path: path, Reason: err.Error(), AtSeq: seq}
		}
		seq++
		if err := onPair(sess, *msg); err != nil {
			return err
		}
	}
	if err := sc.Err(); err != nil {
		return &model.ParseError{Kind: model.ParseTruncated, Path: path, Reason: err.Error(), AtSeq: seq, Wrapped: err}
	}
	return nil
}

// normalizeID accepts either a valid UUID or an opaque codex session id;
// codex session identifiers are not always RFC4122 UUIDs in the wild, so
// unlike D1 this dialect does not reject non-UUID identifiers outright —
// it instead derives a stable UUID from the raw id so NewSession's
// primary-key invariant still holds.
func normalizeID(id string) string {
	if _, err := uuid.Parse(id); err == nil {
		return id
	}
	return shared.DeterministicUUID(id)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t
	}
	return time.Time{}
}

// inferProjectName prefers the basename of cwd, falls back to the
// repository name extracted from git.repository_url, and otherwise
// returns an empty project name; no filesystem heuristic is applied
// afterwards.
func inferProjectName(meta sessionMeta) string {
	if meta.Cwd != "" {
		return filepath.Base(filepath.Clean(meta.Cwd))
	}
	if meta.Git != nil && meta.Git.RepositoryURL != "" {
		last := meta.Git.RepositoryURL
		if idx := strings.LastIndexByte(last, '/'); idx >= 0 {
			last = last[idx+1:]
		}
		return strings.TrimSuffix(last, ".git")
	}
	return ""
}
