package cursoragent

import (
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"
)

// encodeField4 wraps payload as a single protobuf-like length-delimited
// field 4, matching the wire shape test_cursor_agent_parser.rs exercises.
func encodeField4(payload []byte) []byte {
	tag := byte(4<<3 | 2) // field 4, wire type 2 (length-delimited)
	out := []byte{tag}
	out = append(out, encodeVarint(uint64(len(payload)))...)
	return append(out, payload...)
}

func encodeVarint(v uint64) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			out = append(out, b|0x80)
		} else {
			out = append(out, b)
			break
		}
	}
	return out
}

// buildStoreDB creates a store.db fixture using the CGO sqlite3 driver
// (mattn/go-sqlite3), then the adapter under test reopens it with the
// pure-Go modernc.org/sqlite driver — both read the same on-disk SQLite
// file format.
func buildStoreDB(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "store.db")

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`CREATE TABLE meta (key TEXT PRIMARY KEY, value TEXT)`)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE blobs (id TEXT PRIMARY KEY, data BLOB)`)
	require.NoError(t, err)

	metaRec := metaRecord{
		AgentID:       "agent-abc123",
		Name:          "my-cursor-project",
		CreatedAt:     1735689600000, // 2025-01-01T00:00:00Z
		LastUsedModel: "gpt-5",
	}
	metaJSON, err := json.Marshal(metaRec)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO meta (key, value) VALUES ('0', ?)`, hex.EncodeToString(metaJSON))
	require.NoError(t, err)

	msg1 := blobMessage{Role: "user", Content: []blobPart{{Type: "text", Text: "list files"}}}
	msg1JSON, err := json.Marshal(msg1)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO blobs (id, data) VALUES (?, ?)`, "blob-1", encodeField4(msg1JSON))
	require.NoError(t, err)

	msg2 := blobMessage{Role: "assistant", Content: []blobPart{
		{Type: "tool-call", Name: "run_shell_command", Input: json.RawMessage(`{"command":"ls"}`)},
	}}
	msg2JSON, err := json.Marshal(msg2)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO blobs (id, data) VALUES (?, ?)`, "blob-2", encodeField4(msg2JSON))
	require.NoError(t, err)

	return path
}

func TestParse_CursorAgentStoreDB(t *testing.T) {
	path := buildStoreDB(t)

	a := New()
	result, err := a.Parse(path)
	require.NoError(t, err)
	require.NoError(t, uuid.Validate(result.Session.ID), "session id must be a valid UUID derived from the opaque agentId")
	require.Equal(t, synthesizeSessionID("agent-abc123"), result.Session.ID, "derivation must be stable across parses")
	require.Equal(t, "my-cursor-project", result.Session.ProjectName)
	require.Len(t, result.Messages, 2)

	require.Equal(t, "list files", result.Messages[0].Content)
	require.Equal(t, "[Tool Use: Bash]", result.Messages[1].Content)
	require.Len(t, result.Messages[1].ToolUses, 1)
	require.Equal(t, "blob-2-tool-0", result.Messages[1].ToolUses[0].ID)
}

func TestValidate_RequiresMetaAndBlobsTables(t *testing.T) {
	path := buildStoreDB(t)
	a := New()
	ok, err := a.Validate(path)
	require.NoError(t, err)
	require.True(t, ok)
}
