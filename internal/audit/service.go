// Package audit reads the audit log written by the portal modules.
package audit

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"github.com/backoffice/backoffice/internal/platform/httpx"
)

const (
	defaultPageSize = 20
	maxPageSize     = 50
	maxExportRows   = 10000
)

// Service coordinates audit timeline reads.
type Service struct {
	repo Repository
}

// NewService creates an audit timeline service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) params(filters TimelineFilters) (WindowParams, error) {
	if s.repo == nil {
		return WindowParams{}, fmt.Errorf("audit: repository not configured")
	}
	if filters.TenantID <= 0 {
		return WindowParams{}, fmt.Errorf("%w: tenant required", httpx.ErrValidation)
	}
	if !filters.From.IsZero() && !filters.To.IsZero() && filters.To.Before(filters.From) {
		return WindowParams{}, fmt.Errorf("%w: to must not precede from", httpx.ErrValidation)
	}
	return WindowParams{
		TenantID: filters.TenantID,
		FromAt:   toPgTime(filters.From),
		ToAt:     toPgTime(filters.To),
		ActorID:  optionalInt(filters.ActorID),
		Entity:   optionalText(filters.Entity),
		Action:   optionalText(filters.Action),
	}, nil
}

// Timeline returns one page of the tenant's audit log, newest first.
func (s *Service) Timeline(ctx context.Context, filters TimelineFilters) (Result, error) {
	params, err := s.params(filters)
	if err != nil {
		return Result{}, err
	}
	pageSize := filters.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	page := filters.Page
	if page <= 0 {
		page = 1
	}
	params.Offset = int32((page - 1) * pageSize)
	params.Limit = int32(pageSize + 1)

	rows, err := s.repo.TimelineWindow(ctx, params)
	if err != nil {
		return Result{}, err
	}
	hasNext := len(rows) > pageSize
	if hasNext {
		rows = rows[:pageSize]
	}
	if rows == nil {
		rows = []TimelineRow{}
	}
	paging := PagingInfo{Page: page, PageSize: pageSize, HasNext: hasNext}
	if page > 1 {
		paging.PrevPage = page - 1
	}
	if hasNext {
		paging.NextPage = page + 1
	}
	return Result{Rows: rows, Paging: paging}, nil
}

// ExportCSV renders every matching row, capped at maxExportRows.
func (s *Service) ExportCSV(ctx context.Context, filters TimelineFilters) ([]byte, error) {
	params, err := s.params(filters)
	if err != nil {
		return nil, err
	}
	params.Limit = maxExportRows
	rows, err := s.repo.TimelineWindow(ctx, params)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write([]string{"id", "at", "actor_id", "action", "entity", "entity_id", "meta"})
	for _, row := range rows {
		_ = w.Write([]string{
			strconv.FormatInt(row.ID, 10),
			row.At.UTC().Format(time.RFC3339),
			strconv.FormatInt(row.ActorID, 10),
			row.Action,
			row.Entity,
			row.EntityID,
			string(row.Meta),
		})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
