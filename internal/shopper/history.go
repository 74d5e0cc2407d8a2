package shopper

import (
	"context"
	"strings"

	"github.com/ariefcatur/go-storefront/internal/session"
)

// ShownHistory is how many recent searches the search box lists.
const ShownHistory = 5

type HistoryAPI interface {
	SearchHistory(ctx context.Context, userID string) ([]string, error)
	AddSearchHistory(ctx context.Context, userID, term string) error
	ClearSearchHistory(ctx context.Context, userID string) error
}

// History is the signed-in user's search history. Anonymous sessions have
// none and every call is a no-op for them.
type History struct {
	API HistoryAPI
}

func userID(ctx context.Context) (string, bool) {
	s := session.From(ctx)
	if !s.Authenticated() {
		return "", false
	}
	u, _ := s.CurrentUser()
	return u.ID, true
}

// Recent loads the history, newest entries as the backend orders them,
// capped at ShownHistory. A failed load reads as empty.
func (h History) Recent(ctx context.Context) []string {
	id, ok := userID(ctx)
	if !ok {
		return nil
	}
	list, err := h.API.SearchHistory(ctx, id)
	if err != nil {
		return []string{}
	}
	if len(list) > ShownHistory {
		list = list[:ShownHistory]
	}
	return list
}

// Record saves a submitted search. Blank terms are not recorded.
func (h History) Record(ctx context.Context, term string) error {
	term = strings.TrimSpace(term)
	id, ok := userID(ctx)
	if !ok || term == "" {
		return nil
	}
	return h.API.AddSearchHistory(ctx, id, term)
}

func (h History) Clear(ctx context.Context) error {
	id, ok := userID(ctx)
	if !ok {
		return ErrLoginRequired
	}
	return h.API.ClearSearchHistory(ctx, id)
}
