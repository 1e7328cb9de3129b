// Package cursoragent implements the D5 dialect: an embedded SQLite
// database (store.db) whose blobs table holds protobuf-like
// length-prefixed chunks. No teacher precedent exists for this dialect;
// it is grounded on original_source's CursorAgentConfig and
// test_cursor_agent_parser.rs (see DESIGN.md).
package cursoragent

import (
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/wilbur182/chatvault/internal/model"
	"github.com/wilbur182/chatvault/internal/parser"
	"github.com/wilbur182/chatvault/internal/parser/shared"
)

type Adapter struct{}

func New() *Adapter { return &Adapter{} }

var _ parser.Parser = (*Adapter)(nil)

// metaRecord is the hex-decoded JSON value stored under meta key "0".
type metaRecord struct {
	AgentID          string `json:"agentId"`
	LatestRootBlobID string `json:"latestRootBlobId"`
	Name             string `json:"name"`
	Mode             string `json:"mode"`
	CreatedAt        int64  `json:"createdAt"` // unix milliseconds
	LastUsedModel    string `json:"lastUsedModel"`
}

// blobMessage is the JSON object embedded at wire field 4 of a blob row.
type blobMessage struct {
	Role    string     `json:"role"`
	Content []blobPart `json:"content"`
}

type blobPart struct {
	Type    string          `json:"type"`
	Text    string          `json:"text"`
	Name    string          `json:"name"`
	Input   json.RawMessage `json:"input"`
}

func (a *Adapter) Validate(path string) (bool, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return false, nil
	}
	defer db.Close()
	var count int
	err = db.QueryRow(`SELECT count(*) FROM sqlite_master WHERE type='table' AND name IN ('meta','blobs')`).Scan(&count)
	if err != nil {
		return false, nil
	}
	return count == 2, nil
}

func (a *Adapter) Parse(path string) (parser.SessionMessages, error) {
	var result parser.SessionMessages

	fingerprint, err := shared.Fingerprint(path)
	if err != nil {
		return result, &model.ParseError{Kind: model.ParseHeader, Path: path, Reason: "cannot fingerprint file", Wrapped: err}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return result, &model.ParseError{Kind: model.ParseHeader, Path: path, Reason: "cannot open store.db", Wrapped: err}
	}
	defer db.Close()

	meta, err := readMeta(db)
	if err != nil {
		return result, &model.ParseError{Kind: model.ParseHeader, Path: path, Reason: "malformed_header: " + err.Error()}
	}

	startTime := time.UnixMilli(meta.CreatedAt).UTC()
	sess, err := model.NewSession(synthesizeSessionID(meta.AgentID), model.ProviderCursorAgent, path, fingerprint, startTime, time.Now())
	if err != nil {
		return result, err
	}
	sess.ProjectName = meta.Name

	rows, err := db.Query(`SELECT id, data FROM blobs ORDER BY id ASC`)
	if err != nil {
		return result, &model.ParseError{Kind: model.ParseHeader, Path: path, Reason: "cannot read blobs table", Wrapped: err}
	}
	defer rows.Close()

	seq := 0
	var messages []model.Message
	for rows.Next() {
		var blobID string
		var data []byte
		if err := rows.Scan(&blobID, &data); err != nil {
			continue // tolerate unreadable rows, per D5's tolerate-and-skip policy
		}
		msg, ok := decodeBlob(sess.ID, blobID, data, seq)
		if !ok {
			continue
		}
		seq++
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return result, &model.ParseError{Kind: model.ParseTruncated, Path: path, Reason: err.Error(), AtSeq: seq, Wrapped: err}
	}

	if err := sess.SetMessageCount(len(messages)); err != nil {
		return result, err
	}
	result.Session = sess
	result.Messages = messages
	return result, nil
}

func readMeta(db *sql.DB) (metaRecord, error) {
	var hexValue string
	err := db.QueryRow(`SELECT value FROM meta WHERE key = '0'`).Scan(&hexValue)
	if err != nil {
		return metaRecord{}, err
	}
	raw, err := hex.DecodeString(hexValue)
	if err != nil {
		return metaRecord{}, err
	}
	var rec metaRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return metaRecord{}, err
	}
	if rec.AgentID == "" {
		return metaRecord{}, fmt.Errorf("meta record missing agentId")
	}
	return rec, nil
}

// synthesizeSessionID turns an agentId that is not already a UUID into a
// stable one; many cursor-agent ids in the wild are opaque strings rather
// than RFC4122 UUIDs, so a deterministic UUID is derived from the raw
// agentId to satisfy NewSession's primary-key invariant. The session's
// natural key for deduplication remains (provider, file_hash) regardless
// of this id's shape.
func synthesizeSessionID(agentID string) string {
	if _, err := uuid.Parse(agentID); err == nil {
		return agentID
	}
	return shared.DeterministicUUID(agentID)
}

// decodeBlob parses one blobs-table row into a Message. It returns ok=false
// when the row does not contain a recognizable message, which the caller
// treats as skippable rather than fatal.
func decodeBlob(sessionID, blobID string, data []byte, seq int) (model.Message, bool) {
	fields := lengthDelimitedFields(data)
	payload, ok := fields[4]
	if !ok {
		return model.Message{}, false
	}
	var bm blobMessage
	if err := json.Unmarshal(payload, &bm); err != nil {
		return model.Message{}, false
	}

	var text string
	var toolUses []model.ToolUse
	for i, part := range bm.Content {
		switch part.Type {
		case "text":
			if text != "" {
				text += "\n"
			}
			text += part.Text
		case "tool-call":
			name := model.NormalizeToolName(part.Name)
			if text != "" {
				text += "\n"
			}
			text += "[Tool Use: " + name + "]"
			var input map[string]any
			_ = json.Unmarshal(part.Input, &input)
			toolUses = append(toolUses, model.ToolUse{
				ID:       fmt.Sprintf("%s-tool-%d", blobID, i),
				Name:     name,
				Input:    input,
				RawInput: string(part.Input),
			})
		}
	}

	msg, err := model.NewMessage("", sessionID, normalizeRole(bm.Role), text, time.Time{}, seq)
	if err != nil {
		return model.Message{}, false
	}
	msg.ToolUses = toolUses
	return *msg, true
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
