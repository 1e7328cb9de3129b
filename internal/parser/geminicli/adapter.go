// Package geminicli implements the D4 dialect: a flat JSON array of
// messages with session metadata implicit from the filename, generalized
// from the teacher's geminicli adapter into a dialect parser over the
// canonical model.
package geminicli

import (
	"encoding/json"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/wilbur182/chatvault/internal/model"
	"github.com/wilbur182/chatvault/internal/parser"
	"github.com/wilbur182/chatvault/internal/parser/shared"
)

// filenamePattern matches session-<date>-<tag>.json, capturing the date
// and the trailing tag used as a project-name hint.
var filenamePattern = regexp.MustCompile(`^session-([0-9T:\-\.Z]+)-(.+)\.json$`)

type Adapter struct{}

func New() *Adapter { return &Adapter{} }

var _ parser.Parser = (*Adapter)(nil)

type rawMessage struct {
	Role      string          `json:"role"`
	Content   json.RawMessage `json:"content"`
	Timestamp string          `json:"timestamp"`
	Tokens    *tokens         `json:"tokens"`
}

type tokens struct {
	Input    int64 `json:"input"`
	Output   int64 `json:"output"`
	Cached   int64 `json:"cached"`
	Thoughts int64 `json:"thoughts"`
	Tool     int64 `json:"tool"`
	Total    int64 `json:"total"`
}

func (a *Adapter) Validate(path string) (bool, error) {
	base := baseName(path)
	if !filenamePattern.MatchString(base) {
		return false, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return false, err
	}
	trimmed := strings.TrimSpace(string(data))
	return strings.HasPrefix(trimmed, "["), nil
}

func (a *Adapter) Parse(path string) (parser.SessionMessages, error) {
	var result parser.SessionMessages

	fingerprint, err := shared.Fingerprint(path)
	if err != nil {
		return result, &model.ParseError{Kind: model.ParseHeader, Path: path, Reason: "cannot fingerprint file", Wrapped: err}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return result, &model.ParseError{Kind: model.ParseHeader, Path: path, Reason: "cannot read file", Wrapped: err}
	}

	var raws []rawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return result, &model.ParseError{Kind: model.ParseHeader, Path: path, Reason: "malformed_header: " + err.Error()}
	}

	base := baseName(path)
	sessionID, tag := deriveIDAndTag(base)
	start := time.Time{}
	if len(raws) > 0 {
		start = parseTime(raws[0].Timestamp)
	}

	sess, err := model.NewSession(normalizeID(sessionID), model.ProviderGeminiCLI, path, fingerprint, start, time.Now())
	if err != nil {
		return result, err
	}
	sess.ProjectName = tag

	var sessionTokens int64
	messages := make([]model.Message, 0, len(raws))
	for i, rm := range raws {
		role := normalizeRole(rm.Role)
		content := contentText(rm.Content)
		ts := parseTime(rm.Timestamp)
		msg, err := model.NewMessage("", sess.ID, role, content, ts, i)
		if err != nil {
			return result, &model.ParseError{Kind: model.ParseTruncated, Path: path, Reason: err.Error(), AtSeq: i}
		}
		if rm.Tokens != nil {
			total := rm.Tokens.Total
			msg.TokenCount = &total
			sessionTokens += total
		}
		messages = append(messages, *msg)
	}

	if sessionTokens > 0 {
		sess.TokenCount = &sessionTokens
	}
	if err := sess.SetMessageCount(len(messages)); err != nil {
		return result, err
	}

	result.Session = sess
	result.Messages = messages
	return result, nil
}

func baseName(path string) string {
	idx := strings.LastIndexAny(path, "/\\")
	if idx < 0 {
		return path
	}
	return path[idx+1:]
}

// deriveIDAndTag extracts the session id and project-name hint from a
// session-<date>-<tag>.json filename. When the filename does not match the
// convention, the basename (without extension) is the id and the tag is
// empty.
func deriveIDAndTag(base string) (id string, tag string) {
	m := filenamePattern.FindStringSubmatch(base)
	if m == nil {
		stripped := strings.TrimSuffix(base, ".json")
		return stripped, ""
	}
	date, t := m[1], m[2]
	return "session-" + date + "-" + t, t
}

// normalizeID derives a stable UUID from the filename-derived session id,
// which is almost never UUID-shaped (it embeds a timestamp and tag), so
// NewSession's primary-key invariant still holds.
func normalizeID(id string) string {
	if _, err := uuid.Parse(id); err == nil {
		return id
	}
	return shared.DeterministicUUID(id)
}

func normalizeRole(raw string) model.Role {
	switch raw {
	case "assistant", "model":
		return model.RoleAssistant
	case "system":
		return model.RoleSystem
	default:
		return model.RoleUser
	}
}

func contentText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
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
