package store

import "capsule-hostel-backend/internal/model"

// Page is the input half of the pagination contract used by list queries.
type Page struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

// Normalize clamps out-of-range values to the defaults.
func (p *Page) Normalize() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = 20
	}
}

// Pagination is the output half of the pagination contract.
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
	HasMore    bool  `json:"hasMore"`
}

// NewPagination derives the response metadata for a page over total rows.
func NewPagination(p Page, total int64) Pagination {
	totalPages := int((total + int64(p.Limit) - 1) / int64(p.Limit))
	return Pagination{
		Page:       p.Page,
		Limit:      p.Limit,
		Total:      total,
		TotalPages: totalPages,
		HasMore:    p.Page < totalPages,
	}
}

// GuestPage is a page of guest records with its pagination metadata.
type GuestPage struct {
	Data       []model.Guest `json:"data"`
	Pagination Pagination    `json:"pagination"`
}
