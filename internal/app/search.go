package app

import (
	"context"
	"fmt"

	"github.com/example/bulkcase/internal/core/query"
	"github.com/example/bulkcase/internal/ports/secondary"
)

// DefaultPageSize is used when a search is configured without a page size.
const DefaultPageSize = 50

// searchAll pages through every record of caseType matching pred and stops
// once limit records are collected (limit <= 0 means no limit). The whole
// result is gathered before any caller writes, so updates cannot shift later
// pages. On a failed page the records gathered so far are returned with the
// error.
func searchAll(ctx context.Context, store secondary.CaseStore, caseType string, pred query.Predicate, pageSize, limit int) ([]*secondary.CaseRecord, error) {
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}

	var out []*secondary.CaseRecord
	for page := 1; ; page++ {
		result, err := store.Search(ctx, secondary.SearchRequest{
			CaseType:  caseType,
			Predicate: pred,
			Page:      page,
			PageSize:  pageSize,
		})
		if err != nil {
			return out, fmt.Errorf("search page %d failed: %w", page, err)
		}

		for _, rec := range result.Cases {
			out = append(out, rec)
			if limit > 0 && len(out) >= limit {
				return out, nil
			}
		}

		if len(result.Cases) < pageSize || page*pageSize >= result.Total {
			return out, nil
		}
	}
}
