package repository

import (
	"context"
	"errors"

	"cassation-api/internal/domain"
)

// ErrDecisionNotFound is returned when no decision has the requested id.
var ErrDecisionNotFound = errors.New("decision not found")

// DecisionFilter narrows a listing. An empty Formation matches every decision.
type DecisionFilter struct {
	Formation string
}

// DecisionRepository exposes persistence operations for Decision records.
// Listing and search results are ordered by id ascending.
type DecisionRepository interface {
	Init(ctx context.Context) error
	// InsertNew stores the decisions whose id is not yet present, in a single
	// transaction, and returns how many rows were added.
	InsertNew(ctx context.Context, decisions []domain.Decision) (int, error)
	ExistingIDs(ctx context.Context, ids []string) (map[string]struct{}, error)
	Get(ctx context.Context, id string) (*domain.Decision, error)
	List(ctx context.Context, filter DecisionFilter, page domain.PageRequest) ([]domain.DecisionSummary, int, error)
	// Search returns the page of decisions whose title or content contains the
	// whole query, case-insensitively, plus the total number of matches.
	Search(ctx context.Context, query string, page domain.PageRequest) ([]domain.Decision, int, error)
	Count(ctx context.Context) (int, error)
}
