package query

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/wilbur182/chatvault/internal/extractor"
	"github.com/wilbur182/chatvault/internal/model"
	"github.com/wilbur182/chatvault/internal/store"
	"github.com/wilbur182/chatvault/internal/turns"
)

func openTestFacade(t *testing.T) (*Facade, *store.Store) {
	t.Helper()
	s, err := store.Open(context.Background(), filepath.Join(t.TempDir(), "chatvault.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return New(s), s
}

func importSample(t *testing.T, s *store.Store, fileHash, project string) *model.Session {
	t.Helper()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	sess, err := model.NewSession("", model.ProviderClaudeCode, "/tmp/"+fileHash+".jsonl", fileHash, now, now)
	require.NoError(t, err)
	sess.ProjectName = project

	m0, err := model.NewMessage("", sess.ID, model.RoleUser, "investigate the crash", now, 0)
	require.NoError(t, err)
	m1, err := model.NewMessage("", sess.ID, model.RoleAssistant, "found the bug in main.go", now.Add(time.Second), 1)
	require.NoError(t, err)
	messages := []model.Message{*m0, *m1}

	ops, _ := extractor.Extract(sess.ID, messages)
	detectedTurns := turns.Detect(sess.ID, messages, ops)

	_, err = s.ImportSession(context.Background(), sess, messages, ops, detectedTurns, now)
	require.NoError(t, err)
	return sess
}

func TestListSessions_AppliesDefaultsAndComputesTotalPages(t *testing.T) {
	f, s := openTestFacade(t)
	for i := 0; i < 5; i++ {
		importSample(t, s, "hash"+string(rune('a'+i)), "proj")
	}

	resp, err := f.ListSessions(context.Background(), ListSessionsRequest{PageSize: 2})
	require.NoError(t, err)
	require.Equal(t, 1, resp.Page)
	require.Equal(t, 2, resp.PageSize)
	require.Equal(t, 5, resp.TotalCount)
	require.Equal(t, 3, resp.TotalPages)
	require.Len(t, resp.Sessions, 2)
}

func TestListSessions_OutOfRangePageReturnsEmptyWithCorrectTotal(t *testing.T) {
	f, s := openTestFacade(t)
	importSample(t, s, "onlyone", "")

	resp, err := f.ListSessions(context.Background(), ListSessionsRequest{Page: 99, PageSize: 10})
	require.NoError(t, err)
	require.Equal(t, 1, resp.TotalCount)
	require.Empty(t, resp.Sessions)
}

func TestSessionDetail_IncludeContentFalseBlanksText(t *testing.T) {
	f, s := openTestFacade(t)
	sess := importSample(t, s, "detailhash", "")

	resp, err := f.SessionDetail(context.Background(), SessionDetailRequest{SessionID: sess.ID, IncludeContent: false})
	require.NoError(t, err)
	require.Len(t, resp.Messages, 2)
	for _, m := range resp.Messages {
		require.Empty(t, m.Content)
	}
	require.Len(t, resp.Turns, 1)
}

func TestSessionDetail_IncludeContentTruePreservesText(t *testing.T) {
	f, s := openTestFacade(t)
	sess := importSample(t, s, "detailhash2", "")

	resp, err := f.SessionDetail(context.Background(), SessionDetailRequest{SessionID: sess.ID, IncludeContent: true})
	require.NoError(t, err)
	require.Equal(t, "investigate the crash", resp.Messages[0].Content)
}

func TestSessionDetail_UnknownSessionReturnsNotFound(t *testing.T) {
	f, _ := openTestFacade(t)
	_, err := f.SessionDetail(context.Background(), SessionDetailRequest{SessionID: "nope"})
	require.ErrorIs(t, err, model.ErrNotFound)
}

func TestSearchMessages_DefaultsAndPagination(t *testing.T) {
	f, s := openTestFacade(t)
	importSample(t, s, "searchhash", "")

	resp, err := f.SearchMessages(context.Background(), SearchMessagesRequest{Query: "crash"})
	require.NoError(t, err)
	require.Equal(t, defaultPage, resp.Page)
	require.Equal(t, defaultPageSize, resp.PageSize)
	require.Equal(t, 1, resp.TotalCount)
	require.Len(t, resp.Results, 1)
}
