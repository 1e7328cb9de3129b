// Package archive implements the D3 dialect: a JSON document holding
// multiple conversations under a top-level "conversations" array. This
// dialect has no teacher precedent; it is grounded on original_source's
// ParserType::Generic catch-all and written in the idiom of the D1 parser,
// reusing the same content-flattening helper.
package archive

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/wilbur182/chatvault/internal/model"
	"github.com/wilbur182/chatvault/internal/parser"
	"github.com/wilbur182/chatvault/internal/parser/shared"
)

type Adapter struct{}

func New() *Adapter { return &Adapter{} }

var _ parser.MultiParser = (*Adapter)(nil)

type archiveDoc struct {
	Conversations []conversation `json:"conversations"`
}

type conversation struct {
	ConversationID string          `json:"conversation_id"`
	CreatedAt      string          `json:"created_at"`
	Messages       []rawMessage    `json:"messages"`
	ProjectName    string          `json:"project_name"`
}

type rawMessage struct {
	Role      string          `json:"role"`
	Content   json.RawMessage `json:"content"`
	Timestamp string          `json:"timestamp"`
}

func (a *Adapter) Validate(path string) (bool, error) {
	data, err := peek(path, 4096)
	if err != nil {
		return false, err
	}
	var probe struct {
		Conversations json.RawMessage `json:"conversations"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		// The 4KiB sniff window may cut a large archive mid-document;
		// a decode failure here is inconclusive, not disqualifying,
		// unless the file is in fact small enough to have decoded whole.
		info, statErr := os.Stat(path)
		if statErr == nil && info.Size() <= 4096 {
			return false, nil
		}
	}
	return len(probe.Conversations) > 0, nil
}

func peek(path string, n int) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	buf := make([]byte, n)
	read, err := f.Read(buf)
	if err != nil && read == 0 {
		return nil, err
	}
	return buf[:read], nil
}

// Parse returns only the first conversation in the archive, for callers
// that only need single-session semantics.
func (a *Adapter) Parse(path string) (parser.SessionMessages, error) {
	many, err := a.ParseMany(path)
	if err != nil {
		return parser.SessionMessages{}, err
	}
	if len(many) == 0 {
		return parser.SessionMessages{}, &model.ParseError{Kind: model.ParseHeader, Path: path, Reason: "no conversations in archive"}
	}
	return many[0], nil
}

// ParseMany decodes every conversation in the archive into its own
// SessionMessages pair.
func (a *Adapter) ParseMany(path string) ([]parser.SessionMessages, error) {
	fingerprint, err := shared.Fingerprint(path)
	if err != nil {
		return nil, &model.ParseError{Kind: model.ParseHeader, Path: path, Reason: "cannot fingerprint file", Wrapped: err}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &model.ParseError{Kind: model.ParseHeader, Path: path, Reason: "cannot read file", Wrapped: err}
	}

	var doc archiveDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &model.ParseError{Kind: model.ParseHeader, Path: path, Reason: "malformed_header: " + err.Error()}
	}

	out := make([]parser.SessionMessages, 0, len(doc.Conversations))
	for idx, conv := range doc.Conversations {
		id := conv.ConversationID
		if id == "" {
			id = synthesizeID(fingerprint, idx)
		} else if _, err := uuid.Parse(id); err != nil {
			id = shared.DeterministicUUID(id)
		}
		start := time.Time{}
		if len(conv.Messages) > 0 {
			start = parseTime(conv.Messages[0].Timestamp)
		} else {
			start = parseTime(conv.CreatedAt)
		}

		sess, err := model.NewSession(id, model.ProviderOther, path, fingerprint, start, time.Now())
		if err != nil {
			return nil, err
		}
		sess.ProjectName = conv.ProjectName

		messages := make([]model.Message, 0, len(conv.Messages))
		for seq, rm := range conv.Messages {
			role := normalizeRole(rm.Role)
			flat := flattenContent(rm.Content)
			ts := parseTime(rm.Timestamp)
			msg, err := model.NewMessage("", sess.ID, role, flat.Content, ts, seq)
			if err != nil {
				return nil, &model.ParseError{Kind: model.ParseTruncated, Path: path, Reason: err.Error(), AtSeq: seq}
			}
			msg.ToolUses = flat.ToolUses
			msg.ToolResults = flat.ToolResults
			msg.Thinking = flat.Thinking
			messages = append(messages, *msg)
		}
		if err := sess.SetMessageCount(len(messages)); err != nil {
			return nil, err
		}
		out = append(out, parser.SessionMessages{Session: sess, Messages: messages})
	}
	return out, nil
}

// synthesizeID deterministically derives a stable UUID from the file
// fingerprint and element index, so that re-imports of an archive lacking
// conversation_id fields yield the same identifiers every time.
func synthesizeID(fingerprint string, index int) string {
	return shared.DeterministicUUID(fmt.Sprintf("%s:%d", fingerprint, index))
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

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t
	}
	return time.Time{}
}
