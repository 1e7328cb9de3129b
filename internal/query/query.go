// Package query implements the read-side facade (C8): paginated session
// listing, session detail assembly, and full-text message search, each
// with the exact default/pagination contract external callers (cmd/chatvault,
// or any future HTTP surface) depend on.
package query

import (
	"context"
	"errors"
	"math"

	"github.com/wilbur182/chatvault/internal/model"
	"github.com/wilbur182/chatvault/internal/store"
)

const (
	defaultPage      = 1
	defaultPageSize  = 20
	defaultSortBy    = "start_time"
	defaultSortOrder = "desc"
)

// Facade is the query-side entry point, backed by one store.Store.
type Facade struct {
	store *store.Store
}

// New builds a Facade over an already-opened store.
func New(s *store.Store) *Facade {
	return &Facade{store: s}
}

// ListSessionsRequest narrows and sorts ListSessions. Zero-value fields
// take their documented default: Page=1, PageSize=20, SortBy=start_time,
// SortOrder=desc.
type ListSessionsRequest struct {
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
	Provider  model.Provider
	Project   string
}

// ListSessionsResponse is one page of sessions plus the pagination totals
// needed to render a pager without a second call.
type ListSessionsResponse struct {
	Sessions   []model.Session
	Page       int
	PageSize   int
	TotalCount int
	TotalPages int
}

// ListSessions returns one page of sessions. A page past the end of the
// result set returns an empty Sessions slice with the correct TotalCount
// and TotalPages rather than an error.
func (f *Facade) ListSessions(ctx context.Context, req ListSessionsRequest) (*ListSessionsResponse, error) {
	page, pageSize := normalizePage(req.Page, req.PageSize)
	sortBy := req.SortBy
	if sortBy == "" {
		sortBy = defaultSortBy
	}
	sortOrder := req.SortOrder
	if sortOrder == "" {
		sortOrder = defaultSortOrder
	}

	result, err := f.store.ListSessions(ctx, store.SessionFilter{Provider: req.Provider, Project: req.Project},
		sortBy, sortOrder, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, err
	}

	return &ListSessionsResponse{
		Sessions:   result.Sessions,
		Page:       page,
		PageSize:   pageSize,
		TotalCount: result.TotalCount,
		TotalPages: totalPages(result.TotalCount, pageSize),
	}, nil
}

// SessionDetailRequest asks for one session's full context. MessageLimit
// <= 0 means unbounded (all messages returned, HasMoreMessages always
// false).
type SessionDetailRequest struct {
	SessionID      string
	MessageLimit   int
	MessageOffset  int
	IncludeContent bool
}

// SessionDetailResponse is everything known about one session: its row,
// messages (windowed per the request), tool operations, detected turns,
// and whole-session summary if one has been generated.
type SessionDetailResponse struct {
	Session         model.Session
	Messages        []model.Message
	ToolOperations  []model.ToolOperation
	Turns           []model.Turn
	Summary         *model.SessionSummary
	HasMoreMessages bool
}

// SessionDetail assembles a session's full context. IncludeContent=false
// blanks each message's Content field (and each tool operation's raw
// input/result) to keep the response light when only structure —
// counts, turn boundaries, tool names — is needed.
func (f *Facade) SessionDetail(ctx context.Context, req SessionDetailRequest) (*SessionDetailResponse, error) {
	sess, err := f.store.SessionByID(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}

	messages, err := f.store.MessagesForSession(ctx, req.SessionID, req.MessageLimit, req.MessageOffset)
	if err != nil {
		return nil, err
	}
	hasMore := false
	if req.MessageLimit > 0 {
		hasMore = req.MessageOffset+len(messages) < sess.MessageCount
	}

	ops, err := f.store.ToolOperationsForSession(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}
	turns, err := f.store.TurnsForSession(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}

	var summary *model.SessionSummary
	if s, err := f.store.SessionSummaryByID(ctx, req.SessionID); err == nil {
		summary = s
	} else if !errors.Is(err, model.ErrNotFound) {
		return nil, err
	}

	if !req.IncludeContent {
		for i := range messages {
			messages[i].Content = ""
		}
		for i := range ops {
			ops[i].RawInput = ""
			ops[i].RawResult = ""
		}
	}

	return &SessionDetailResponse{
		Session:         *sess,
		Messages:        messages,
		ToolOperations:  ops,
		Turns:           turns,
		Summary:         summary,
		HasMoreMessages: hasMore,
	}, nil
}

// SearchMessagesRequest narrows and paginates SearchMessages. Zero-value
// Page/PageSize take the same defaults as ListSessionsRequest.
type SearchMessagesRequest struct {
	Query     string
	Providers []model.Provider
	Projects  []string
	Filter    store.SearchFilter
	Page      int
	PageSize  int
}

// SearchMessagesResponse is one page of matches, ordered by relevance
// descending, then timestamp descending, then message id — a total
// ordering, so identical queries against an unchanged database always
// return results in the same order.
type SearchMessagesResponse struct {
	Results    []store.SearchResult
	Page       int
	PageSize   int
	TotalCount int
	TotalPages int
}

func (f *Facade) SearchMessages(ctx context.Context, req SearchMessagesRequest) (*SearchMessagesResponse, error) {
	page, pageSize := normalizePage(req.Page, req.PageSize)
	filter := req.Filter
	filter.Providers = req.Providers
	filter.Projects = req.Projects

	results, total, err := f.store.SearchMessages(ctx, req.Query, filter, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, err
	}
	return &SearchMessagesResponse{
		Results:    results,
		Page:       page,
		PageSize:   pageSize,
		TotalCount: total,
		TotalPages: totalPages(total, pageSize),
	}, nil
}

func normalizePage(page, pageSize int) (int, int) {
	if page <= 0 {
		page = defaultPage
	}
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	return page, pageSize
}

func totalPages(totalCount, pageSize int) int {
	if totalCount == 0 {
		return 0
	}
	return int(math.Ceil(float64(totalCount) / float64(pageSize)))
}
