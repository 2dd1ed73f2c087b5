package http

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"cassation-api/internal/domain"
	"cassation-api/internal/service"
)

type MetaResponse struct {
	Page       int  `json:"page"`
	Pages      int  `json:"pages"`
	TotalCount int  `json:"total_count"`
	PrevPage   *int `json:"prev_page"`
	NextPage   *int `json:"next_page"`
	HasNext    bool `json:"has_next"`
	HasPrev    bool `json:"has_prev"`
}

type DecisionSummaryResponse struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Formation string `json:"formation"`
}

type DecisionResponse struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Formation string `json:"formation"`
	Content   string `json:"content"`
}

type SearchHitResponse struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Content string `json:"content"`
	Score   int    `json:"score"`
}

type DecisionListResponse struct {
	Data []DecisionSummaryResponse `json:"data"`
	Meta MetaResponse              `json:"meta"`
}

type SearchResponse struct {
	Data []SearchHitResponse `json:"data"`
	Meta *MetaResponse       `json:"meta,omitempty"`
}

func (h *Handler) listDecisions(c *gin.Context) {
	page, err := pageFromQuery(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := h.decisions.List(c.Request.Context(), c.Query("formation"), page)
	if err != nil {
		h.writeError(c, err)
		return
	}

	resp := DecisionListResponse{
		Data: make([]DecisionSummaryResponse, len(res.Items)),
		Meta: metaToResponse(res.Pagination),
	}
	for i, item := range res.Items {
		resp.Data[i] = DecisionSummaryResponse{ID: item.ID, Title: item.Title, Formation: item.Formation}
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) getDecision(c *gin.Context) {
	d, err := h.decisions.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, DecisionResponse{
		ID:        d.ID,
		Title:     d.Title,
		Formation: d.Formation,
		Content:   d.Content,
	})
}

func (h *Handler) searchDecisions(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		c.JSON(http.StatusOK, SearchResponse{Data: []SearchHitResponse{}})
		return
	}

	page, err := pageFromQuery(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := h.decisions.Search(c.Request.Context(), query, page)
	if err != nil {
		h.writeError(c, err)
		return
	}

	resp := SearchResponse{Data: make([]SearchHitResponse, len(res.Items))}
	for i, item := range res.Items {
		resp.Data[i] = SearchHitResponse{
			ID:      item.ID,
			Title:   item.Title,
			Content: item.Content,
			Score:   item.Score,
		}
	}
	if res.Pagination != nil {
		meta := metaToResponse(*res.Pagination)
		resp.Meta = &meta
	}
	c.JSON(http.StatusOK, resp)
}

func pageFromQuery(c *gin.Context) (domain.PageRequest, error) {
	page, err := positiveQuery(c, "page", 1)
	if err != nil {
		return domain.PageRequest{}, err
	}
	perPage, err := positiveQuery(c, "per_page", service.DefaultPerPage)
	if err != nil {
		return domain.PageRequest{}, err
	}
	return domain.PageRequest{Page: page, PerPage: perPage}, nil
}

func positiveQuery(c *gin.Context, key string, fallback int) (int, error) {
	raw, ok := c.GetQuery(key)
	if !ok || raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 1 {
		return 0, fmt.Errorf("invalid %s: must be a positive integer", key)
	}
	return v, nil
}

func metaToResponse(p domain.Pagination) MetaResponse {
	return MetaResponse{
		Page:       p.Page,
		Pages:      p.Pages,
		TotalCount: p.TotalCount,
		PrevPage:   p.PrevPage,
		NextPage:   p.NextPage,
		HasNext:    p.HasNext,
		HasPrev:    p.HasPrev,
	}
}
