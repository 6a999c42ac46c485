package expense

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/dinherin/internal/expense"
)

type expenseResponse struct {
	ID           uuid.UUID        `json:"id"`
	Title        string           `json:"title"`
	Amount       int64            `json:"amount"`
	AmountMajor  decimal.Decimal  `json:"amount_major"`
	CategoryID   expense.Category `json:"category_id"`
	CategoryName string           `json:"category_name"`
	Date         string           `json:"date"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    *time.Time       `json:"updated_at,omitempty"`
}

func toResponse(e *expense.Expense) expenseResponse {
	return expenseResponse{
		ID:           e.ID,
		Title:        e.Title,
		Amount:       e.Amount,
		AmountMajor:  e.Major(),
		CategoryID:   e.Category,
		CategoryName: e.Category.Name(),
		Date:         e.Date.Format(time.DateOnly),
		CreatedAt:    e.CreatedAt,
		UpdatedAt:    e.UpdatedAt,
	}
}

func toResponseList(expenses []*expense.Expense) []expenseResponse {
	res := make([]expenseResponse, len(expenses))
	for i, e := range expenses {
		res[i] = toResponse(e)
	}

	return res
}

type categoryTotalResponse struct {
	CategoryID   expense.Category `json:"category_id"`
	CategoryName string           `json:"category_name"`
	Total        int64            `json:"total"`
	Percentage   decimal.Decimal  `json:"percentage"`
}

type statisticsResponse struct {
	Success    bool                    `json:"success"`
	Total      int64                   `json:"total"`
	Categories []categoryTotalResponse `json:"categories"`
}

func toStatisticsResponse(s *expense.Statistics) statisticsResponse {
	res := statisticsResponse{
		Success:    true,
		Total:      s.Total,
		Categories: make([]categoryTotalResponse, len(s.Categories)),
	}

	for i, c := range s.Categories {
		res.Categories[i] = categoryTotalResponse{
			CategoryID:   c.Category,
			CategoryName: c.Category.Name(),
			Total:        c.Total,
			Percentage:   c.Percentage,
		}
	}

	return res
}
