package expense

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

type CategoryTotal struct {
	Category Category
	Total    int64
	// Percentage of the grand total, rounded to one decimal place.
	Percentage decimal.Decimal
}

type Statistics struct {
	Total      int64
	Categories []CategoryTotal
}

// Statistics sums the owner's expenses per category. Categories without
// spending are omitted and the rest are ordered by total, largest first.
func (s *Service) Statistics(ctx context.Context, filter ListFilter) (*Statistics, error) {
	totals, err := s.repo.CategoryTotals(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("summing categories: %w", err)
	}

	stats := &Statistics{}

	for category, total := range totals {
		if total <= 0 {
			continue
		}

		stats.Total += total
		stats.Categories = append(stats.Categories, CategoryTotal{Category: category, Total: total})
	}

	slices.SortFunc(stats.Categories, func(a, b CategoryTotal) int {
		if c := cmp.Compare(b.Total, a.Total); c != 0 {
			return c
		}

		return cmp.Compare(a.Category, b.Category)
	})

	if stats.Total == 0 {
		return stats, nil
	}

	grand := decimal.NewFromInt(stats.Total)
	for i := range stats.Categories {
		share := decimal.NewFromInt(stats.Categories[i].Total).Mul(hundred).Div(grand)
		stats.Categories[i].Percentage = share.Round(1)
	}

	return stats, nil
}
