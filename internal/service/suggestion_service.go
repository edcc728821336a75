package service

import (
	"context"
	"log"

	"packing-planner/internal/gemini"
)

// Suggester produces raw packing suggestions for a trip description.
type Suggester interface {
	GeneratePackingSuggestions(ctx context.Context, tripDescription string, categoryNames []string) ([]gemini.Suggestion, error)
}

// SuggestionService adapts the external suggestion call into items on an
// already-created list. The client keeps the failure reason; this is the
// single point where any failure collapses to "zero items added", so callers
// see one uniform outcome for "call failed" and "nothing suggested".
type SuggestionService struct {
	client  Suggester
	planner *PlannerService
}

func NewSuggestionService(client Suggester, planner *PlannerService) *SuggestionService {
	return &SuggestionService{client: client, planner: planner}
}

// Enabled reports whether a suggestion client is configured.
func (s *SuggestionService) Enabled() bool {
	return s.client != nil
}

// FillList requests suggestions and appends them to the list, which is
// already visible and usable while the call is in flight. The planner mutex
// is not held during the network call.
func (s *SuggestionService) FillList(ctx context.Context, listID, tripDescription string) int {
	if s.client == nil {
		return 0
	}

	suggestions, err := s.client.GeneratePackingSuggestions(ctx, tripDescription, s.planner.CategoryNames())
	if err != nil {
		log.Printf("generate suggestions: %v", err)
		return 0
	}
	return s.planner.MaterializeSuggestions(ctx, listID, suggestions)
}
