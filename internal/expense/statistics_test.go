package expense_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MrJamesThe3rd/dinherin/internal/expense"
)

func TestService_Statistics(t *testing.T) {
	type want struct {
		category   expense.Category
		total      int64
		percentage string
	}

	tests := []struct {
		name      string
		totals    map[expense.Category]int64
		wantTotal int64
		want      []want
	}{
		{
			name: "SortedWithPercentages",
			totals: map[expense.Category]int64{
				expense.CategoryFood:      2000,
				expense.CategoryTransport: 1000,
				expense.CategoryHealth:    3000,
				expense.CategoryGifts:     0,
			},
			wantTotal: 6000,
			want: []want{
				{expense.CategoryHealth, 3000, "50"},
				{expense.CategoryFood, 2000, "33.3"},
				{expense.CategoryTransport, 1000, "16.7"},
			},
		},
		{
			name:   "Empty",
			totals: map[expense.Category]int64{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repo := newService(t)
			filter := expense.ListFilter{OwnerEmail: owner}
			repo.EXPECT().CategoryTotals(gomock.Any(), filter).Return(tt.totals, nil)

			got, err := svc.Statistics(context.Background(), filter)
			require.NoError(t, err)
			assert.Equal(t, tt.wantTotal, got.Total)
			require.Len(t, got.Categories, len(tt.want))

			for i, w := range tt.want {
				assert.Equal(t, w.category, got.Categories[i].Category)
				assert.Equal(t, w.total, got.Categories[i].Total)
				assert.Equal(t, w.percentage, got.Categories[i].Percentage.String())
			}
		})
	}
}
