package catalog

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/ariefcatur/go-storefront/internal/backend"
	"github.com/ariefcatur/go-storefront/internal/schedule"
)

const (
	SuggestDelay = 250 * time.Millisecond
	MaxSuggest   = 6
)

type Searcher interface {
	Products(ctx context.Context, search string) ([]backend.Product, error)
}

// Suggest runs one lookup. An empty term and any failure both yield no
// suggestions.
func Suggest(ctx context.Context, api Searcher, term string) []backend.Product {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil
	}
	list, err := api.Products(ctx, term)
	if err != nil {
		return nil
	}
	if len(list) > MaxSuggest {
		list = list[:MaxSuggest]
	}
	out := make([]backend.Product, len(list))
	for i, p := range list {
		out[i] = Normalize(p)
	}
	return out
}

// Suggester follows a search box: each keystroke calls Type, and only the
// last term of a burst reaches the backend. Responses are not sequenced, so
// a slow older lookup may overwrite a newer result.
type Suggester struct {
	api     Searcher
	deb     *schedule.Debouncer
	timeout time.Duration

	mu      sync.Mutex
	results []backend.Product
	visible bool
	onDone  func([]backend.Product)
}

// NewSuggester debounces with delay; a zero delay uses SuggestDelay.
// onDone, if set, is called after each completed lookup.
func NewSuggester(api Searcher, delay time.Duration, onDone func([]backend.Product)) *Suggester {
	if delay <= 0 {
		delay = SuggestDelay
	}
	return &Suggester{api: api, deb: schedule.NewDebouncer(delay), timeout: 10 * time.Second, onDone: onDone}
}

func (s *Suggester) Type(term string) {
	s.deb.Trigger(func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		res := Suggest(ctx, s.api, term)

		s.mu.Lock()
		s.results = res
		s.visible = len(res) > 0
		done := s.onDone
		s.mu.Unlock()
		if done != nil {
			done(res)
		}
	})
}

// Results returns the last completed suggestions and whether the list
// should be shown.
func (s *Suggester) Results() ([]backend.Product, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]backend.Product(nil), s.results...), s.visible
}

// Hide clears the list, e.g. after a search is submitted.
func (s *Suggester) Hide() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = nil
	s.visible = false
}

func (s *Suggester) Close() { s.deb.Stop() }
