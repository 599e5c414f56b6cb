// Package services holds what the lifecycle services share.
package services

import "gorm.io/gorm"

// Page is a skip/limit window.
type Page struct {
	Skip  int `json:"skip"`
	Limit int `json:"limit"`
}

// Normalize clamps the window: a missing or oversize limit becomes def or max.
func (p Page) Normalize(def, max int) Page {
	if p.Skip < 0 {
		p.Skip = 0
	}
	if p.Limit <= 0 {
		p.Limit = def
	}
	if p.Limit > max {
		p.Limit = max
	}
	return p
}

func (p Page) Apply(q *gorm.DB) *gorm.DB {
	return q.Offset(p.Skip).Limit(p.Limit)
}

// Meta is returned next to list results.
type Meta struct {
	Skip       int   `json:"skip"`
	Limit      int   `json:"limit"`
	TotalItems int64 `json:"total_items"`
}

func (p Page) Meta(total int64) Meta {
	return Meta{Skip: p.Skip, Limit: p.Limit, TotalItems: total}
}
