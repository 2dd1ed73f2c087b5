package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"cassation-api/internal/domain"
	"cassation-api/internal/repository"
)

const (
	DefaultPerPage = 5
	MaxPerPage     = 100
)

// DecisionService answers the read queries of the API.
type DecisionService interface {
	List(ctx context.Context, formation string, page domain.PageRequest) (*DecisionPage, error)
	Get(ctx context.Context, id string) (*domain.Decision, error)
	Search(ctx context.Context, query string, page domain.PageRequest) (*SearchPage, error)
}

type DecisionPage struct {
	Items      []domain.DecisionSummary
	Pagination domain.Pagination
}

// SearchPage holds one page of hits sorted by score. Pagination is nil when
// the query was empty.
type SearchPage struct {
	Items      []domain.ScoredDecision
	Pagination *domain.Pagination
}

type decisionService struct {
	decisions repository.DecisionRepository
}

func NewDecisionService(decisions repository.DecisionRepository) DecisionService {
	return &decisionService{decisions: decisions}
}

func (s *decisionService) List(ctx context.Context, formation string, page domain.PageRequest) (*DecisionPage, error) {
	page, err := normalizePage(page)
	if err != nil {
		return nil, err
	}

	filter := repository.DecisionFilter{Formation: strings.TrimSpace(formation)}
	items, total, err := s.decisions.List(ctx, filter, page)
	if err != nil {
		return nil, err
	}

	return &DecisionPage{
		Items:      items,
		Pagination: domain.NewPagination(page, total),
	}, nil
}

func (s *decisionService) Get(ctx context.Context, id string) (*domain.Decision, error) {
	d, err := s.decisions.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrDecisionNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return d, nil
}

// Search filters decisions on the whole query, then ranks the fetched page by
// how many query terms appear in each title and content. Ranking is done per
// page: a better match on a later page is not promoted.
func (s *decisionService) Search(ctx context.Context, query string, page domain.PageRequest) (*SearchPage, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return &SearchPage{Items: []domain.ScoredDecision{}}, nil
	}

	page, err := normalizePage(page)
	if err != nil {
		return nil, err
	}

	matches, total, err := s.decisions.Search(ctx, query, page)
	if err != nil {
		return nil, err
	}

	terms := strings.Fields(strings.ToLower(query))
	items := make([]domain.ScoredDecision, len(matches))
	for i, d := range matches {
		items[i] = domain.ScoredDecision{Decision: d, Score: score(d, terms)}
	}
	// stable: equal scores keep the store order (id ascending)
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Score > items[j].Score
	})

	pagination := domain.NewPagination(page, total)
	return &SearchPage{Items: items, Pagination: &pagination}, nil
}

func score(d domain.Decision, terms []string) int {
	title := strings.ToLower(d.Title)
	content := strings.ToLower(d.Content)

	total := 0
	for _, term := range terms {
		if strings.Contains(title, term) {
			total++
		}
		if strings.Contains(content, term) {
			total++
		}
	}
	return total
}

func normalizePage(page domain.PageRequest) (domain.PageRequest, error) {
	if page.Page == 0 {
		page.Page = 1
	}
	if page.PerPage == 0 {
		page.PerPage = DefaultPerPage
	}
	if page.Page < 1 {
		return page, fmt.Errorf("%w: page must be at least 1", ErrValidation)
	}
	if page.PerPage < 1 || page.PerPage > MaxPerPage {
		return page, fmt.Errorf("%w: per_page must be between 1 and %d", ErrValidation, MaxPerPage)
	}
	return page, nil
}
