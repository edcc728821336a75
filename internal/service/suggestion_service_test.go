package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"packing-planner/internal/gemini"
)

type stubSuggester struct {
	suggestions []gemini.Suggestion
	err         error
	gotPrompt   string
	gotNames    []string
}

func (s *stubSuggester) GeneratePackingSuggestions(_ context.Context, tripDescription string, categoryNames []string) ([]gemini.Suggestion, error) {
	s.gotPrompt = tripDescription
	s.gotNames = categoryNames
	return s.suggestions, s.err
}

func TestFillListAddsSuggestions(t *testing.T) {
	planner := newTestPlanner(t)
	ctx := context.Background()

	stub := &stubSuggester{suggestions: []gemini.Suggestion{
		{Name: "Sunscreen", CategoryName: "Toiletries"},
		{Name: "Flip flops", CategoryName: "Clothing"},
	}}
	svc := NewSuggestionService(stub, planner)
	require.True(t, svc.Enabled())

	list := planner.CreateList(ctx, "Beach", true, "")
	added := svc.FillList(ctx, list.ID, "a week at the beach")
	assert.Equal(t, 2, added)

	assert.Equal(t, "a week at the beach", stub.gotPrompt)
	assert.Equal(t, planner.CategoryNames(), stub.gotNames)

	got, _ := planner.ListByID(list.ID)
	require.Len(t, got.Items, 2)
	assert.Equal(t, "cat_toiletries", got.Items[0].CategoryID)
	assert.Equal(t, "cat_clothing", got.Items[1].CategoryID)
}

// Any failure collapses to zero items; the list stays present and usable.
func TestFillListCollapsesFailureToEmpty(t *testing.T) {
	planner := newTestPlanner(t)
	ctx := context.Background()

	stub := &stubSuggester{err: fmt.Errorf("boom")}
	svc := NewSuggestionService(stub, planner)

	list := planner.CreateList(ctx, "Beach", true, "")
	assert.Equal(t, 0, svc.FillList(ctx, list.ID, "beach"))

	got, ok := planner.ListByID(list.ID)
	require.True(t, ok)
	assert.Empty(t, got.Items)

	_, ok = planner.AddItem(ctx, list.ID, "Towel", "", "")
	assert.True(t, ok, "list must remain usable after a failed suggestion call")
}

func TestFillListWithoutClient(t *testing.T) {
	planner := newTestPlanner(t)
	svc := NewSuggestionService(nil, planner)
	assert.False(t, svc.Enabled())

	list := planner.CreateList(context.Background(), "Beach", true, "")
	assert.Equal(t, 0, svc.FillList(context.Background(), list.ID, "beach"))
}
