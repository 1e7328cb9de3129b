package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/wilbur182/chatvault/internal/extractor"
	"github.com/wilbur182/chatvault/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "chatvault.db")
	s, err := Open(context.Background(), path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleSession(t *testing.T, fileHash string, projectName string) (*model.Session, []model.Message) {
	t.Helper()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	sess, err := model.NewSession("", model.ProviderClaudeCode, "/tmp/"+fileHash+".jsonl", fileHash, now, now)
	require.NoError(t, err)
	sess.ProjectName = projectName

	m0, err := model.NewMessage("", sess.ID, model.RoleUser, "please read main.go", now, 0)
	require.NoError(t, err)
	m1, err := model.NewMessage("", sess.ID, model.RoleAssistant, "", now.Add(time.Second), 1)
	require.NoError(t, err)
	m1.ToolUses = []model.ToolUse{{ID: "t1", Name: "Read", Input: map[string]any{"file_path": "main.go"}}}
	m1.ToolResults = []model.ToolResult{{ToolUseID: "t1", Content: "package main\n"}}

	return sess, []model.Message{*m0, *m1}
}

// P1 — idempotent re-import: importing the same (provider, file_hash)
// twice must not create a duplicate session row.
func TestImportSession_IdempotentOnNaturalKey(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	sess, messages := sampleSession(t, "abc123", "myproject")
	ops, _ := extractor.Extract(sess.ID, messages)
	now := time.Now()

	first, err := s.ImportSession(ctx, sess, messages, ops, nil, now)
	require.NoError(t, err)
	require.False(t, first.AlreadyImported)
	require.Equal(t, 2, first.MessageCount)

	sess2, messages2 := sampleSession(t, "abc123", "myproject")
	sess2.ID = sess.ID
	second, err := s.ImportSession(ctx, sess2, messages2, ops, nil, now)
	require.NoError(t, err)
	require.True(t, second.AlreadyImported)

	page, err := s.ListSessions(ctx, SessionFilter{}, "start_time", "desc", 20, 0)
	require.NoError(t, err)
	require.Equal(t, 1, page.TotalCount)
}

func TestImportSession_ProjectCountersAccumulate(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := time.Now()

	sess1, messages1 := sampleSession(t, "hash1", "shared-project")
	ops1, _ := extractor.Extract(sess1.ID, messages1)
	_, err := s.ImportSession(ctx, sess1, messages1, ops1, nil, now)
	require.NoError(t, err)

	sess2, messages2 := sampleSession(t, "hash2", "shared-project")
	ops2, _ := extractor.Extract(sess2.ID, messages2)
	_, err = s.ImportSession(ctx, sess2, messages2, ops2, nil, now)
	require.NoError(t, err)

	var sessionCount int
	row := s.db.QueryRowContext(ctx, `SELECT session_count FROM projects WHERE name = ?`, "shared-project")
	require.NoError(t, row.Scan(&sessionCount))
	require.Equal(t, 2, sessionCount)
}

// P9 — deleting a session cascades to its messages and tool operations.
func TestDeleteSession_Cascades(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	sess, messages := sampleSession(t, "cascade1", "")
	ops, _ := extractor.Extract(sess.ID, messages)
	_, err := s.ImportSession(ctx, sess, messages, ops, nil, time.Now())
	require.NoError(t, err)

	require.NoError(t, s.DeleteSession(ctx, sess.ID))

	msgs, err := s.MessagesForSession(ctx, sess.ID, 0, 0)
	require.NoError(t, err)
	require.Empty(t, msgs)

	_, err = s.SessionByID(ctx, sess.ID)
	require.ErrorIs(t, err, model.ErrNotFound)
}

func TestDeleteSession_UnknownIDReturnsNotFound(t *testing.T) {
	s := openTestStore(t)
	err := s.DeleteSession(context.Background(), "does-not-exist")
	require.ErrorIs(t, err, model.ErrNotFound)
}

// P8 — pagination math: out-of-range pages return zero rows but a correct
// total count.
func TestListSessions_PaginationTotals(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		sess, messages := sampleSession(t, "page"+string(rune('a'+i)), "")
		ops, _ := extractor.Extract(sess.ID, messages)
		_, err := s.ImportSession(ctx, sess, messages, ops, nil, time.Now())
		require.NoError(t, err)
	}

	page, err := s.ListSessions(ctx, SessionFilter{}, "start_time", "desc", 2, 0)
	require.NoError(t, err)
	require.Equal(t, 3, page.TotalCount)
	require.Len(t, page.Sessions, 2)

	lastPage, err := s.ListSessions(ctx, SessionFilter{}, "start_time", "desc", 2, 10)
	require.NoError(t, err)
	require.Equal(t, 3, lastPage.TotalCount)
	require.Empty(t, lastPage.Sessions)
}

func TestSearchMessages_MatchesContentAndScoresRelevance(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	sess, messages := sampleSession(t, "search1", "")
	ops, _ := extractor.Extract(sess.ID, messages)
	_, err := s.ImportSession(ctx, sess, messages, ops, nil, time.Now())
	require.NoError(t, err)

	results, total, err := s.SearchMessages(ctx, "main.go", SearchFilter{}, 10, 0)
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Len(t, results, 1)
	require.Equal(t, sess.ID, results[0].Session.ID)
	require.InDelta(t, 1.0, results[0].Relevance, 0.0001)
}

func TestCompress_RoundTripsLargeBlobAndSkipsSmallOnes(t *testing.T) {
	small := "short"
	require.Equal(t, small, maybeCompress(small))

	large := make([]byte, compressThreshold+1)
	for i := range large {
		large[i] = 'x'
	}
	compressed := maybeCompress(string(large))
	require.NotEqual(t, string(large), compressed)
	require.True(t, len(compressed) > len(compressedPrefix))

	decompressed, err := maybeDecompress(compressed)
	require.NoError(t, err)
	require.Equal(t, string(large), decompressed)
}

func TestImportSession_CompressesLargeRawBlobsAndRoundTripsOnRead(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	sess, messages := sampleSession(t, "bigblob", "")
	largeOutput := make([]byte, compressThreshold+100)
	for i := range largeOutput {
		largeOutput[i] = 'y'
	}
	messages[1].ToolResults[0].Content = string(largeOutput)
	ops, _ := extractor.Extract(sess.ID, messages)
	_, err := s.ImportSession(ctx, sess, messages, ops, nil, time.Now())
	require.NoError(t, err)

	stored, err := s.ToolOperationsForSession(ctx, sess.ID)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	require.Equal(t, string(largeOutput), stored[0].RawResult)
}

func TestSchemaVersion_RejectsNewerDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "newer.db")
	s, err := Open(context.Background(), path)
	require.NoError(t, err)
	_, err = s.db.ExecContext(context.Background(), `UPDATE schema_meta SET version = ?`, CurrentSchemaVersion+1)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = Open(context.Background(), path)
	require.Error(t, err)
	var mismatch *model.SchemaMismatchError
	require.ErrorAs(t, err, &mismatch)
}
