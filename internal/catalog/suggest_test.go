package catalog

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-storefront/internal/backend"
)

func TestSuggest_CapsAndEmpty(t *testing.T) {
	t.Parallel()

	var many []backend.Product
	for i := 0; i < 10; i++ {
		many = append(many, backend.Product{ID: fmt.Sprintf("p%d", i), Name: "Gloss"})
	}
	api := &fakeAPI{products: many}

	got := Suggest(context.Background(), api, "gloss")
	assert.Len(t, got, MaxSuggest)
	assert.Nil(t, Suggest(context.Background(), api, "   "))

	api.failList = true
	assert.Nil(t, Suggest(context.Background(), api, "gloss"))
}

func TestSuggester_DebouncesBurst(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{products: shelf()}
	done := make(chan []backend.Product, 4)
	s := NewSuggester(api, 30*time.Millisecond, func(p []backend.Product) { done <- p })
	t.Cleanup(s.Close)

	s.Type("l")
	s.Type("la")
	s.Type("lak")

	select {
	case got := <-done:
		assert.Equal(t, []string{"p1", "p3"}, productIDs(got))
	case <-time.After(2 * time.Second):
		t.Fatal("suggestions never arrived")
	}

	api.mu.Lock()
	assert.Equal(t, []string{"lak"}, api.searches)
	api.mu.Unlock()

	res, visible := s.Results()
	assert.True(t, visible)
	require.Len(t, res, 2)

	s.Hide()
	res, visible = s.Results()
	assert.False(t, visible)
	assert.Empty(t, res)
}

func TestSuggester_StaleResponseMayWin(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{products: shelf(), searchLag: map[string]time.Duration{"lip": 150 * time.Millisecond}}
	done := make(chan []backend.Product, 4)
	s := NewSuggester(api, 10*time.Millisecond, func(p []backend.Product) { done <- p })
	t.Cleanup(s.Close)

	s.Type("lip")
	time.Sleep(50 * time.Millisecond) // "lip" lookup is in flight
	s.Type("kajal")

	var order [][]string
	for i := 0; i < 2; i++ {
		select {
		case got := <-done:
			order = append(order, productIDs(got))
		case <-time.After(2 * time.Second):
			t.Fatal("lookup never finished")
		}
	}
	assert.Equal(t, [][]string{{"p3"}, {"p1"}}, order)

	res, _ := s.Results()
	assert.Equal(t, []string{"p1"}, productIDs(res), "last response to land is shown")
}
