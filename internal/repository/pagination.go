package repository

import (
	"math"

	"gorm.io/gorm"
)

// Page selects a window of a list query. A zero Limit means no paging.
type Page struct {
	Page  int
	Limit int
}

func (p Page) offset() int {
	if p.Page < 1 || p.Limit < 1 {
		return 0
	}
	if p.Page-1 > math.MaxInt32/p.Limit {
		return math.MaxInt32
	}
	return (p.Page - 1) * p.Limit
}

// Paginate counts the rows matched by query and loads the requested page.
// The scopes (preloads, ordering) apply to the page load only.
func Paginate[T any](query *gorm.DB, page Page, scopes ...func(*gorm.DB) *gorm.DB) ([]T, int64, error) {
	var total int64
	if err := query.Session(&gorm.Session{}).Model(new(T)).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	find := query.Session(&gorm.Session{}).Scopes(scopes...)
	if page.Limit > 0 {
		find = find.Offset(page.offset()).Limit(page.Limit)
	}

	results := make([]T, 0)
	if err := find.Find(&results).Error; err != nil {
		return nil, 0, err
	}
	return results, total, nil
}
