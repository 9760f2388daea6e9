package persistence

import (
	"github.com/aserradero/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// paginate returns a GORM scope applying the filter's page window.
// Zero or negative values fall back to the defaults.
func paginate(filter shared.Filter) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		page := filter.Page
		if page < 1 {
			page = 1
		}
		pageSize := filter.PageSize
		if pageSize < 1 {
			pageSize = 20
		}
		return db.Limit(pageSize).Offset((page - 1) * pageSize)
	}
}
