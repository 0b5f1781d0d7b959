package persistence

import (
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/pharmadist/backend/internal/domain/shared"
)

// validateSortOrder normalizes the sort order to ASC or DESC.
// Returns DESC if the input is invalid or empty.
func validateSortOrder(orderDir string) string {
	if strings.EqualFold(strings.TrimSpace(orderDir), "asc") {
		return "ASC"
	}
	return "DESC"
}

// validateSortField validates the sort field against a whitelist.
// Returns defaultField if the input is empty or not whitelisted.
func validateSortField(sortField string, allowed map[string]bool, defaultField string) string {
	trimmed := strings.TrimSpace(sortField)
	if trimmed == "" || !allowed[trimmed] {
		return defaultField
	}
	return trimmed
}

// commonSortFields contains fields common to most entities
var commonSortFields = map[string]bool{
	"id":         true,
	"created_at": true,
	"updated_at": true,
}

// applySort appends a validated ORDER BY clause to the query
func applySort(query *gorm.DB, filter shared.Filter, allowed map[string]bool, defaultField string) *gorm.DB {
	field := validateSortField(filter.OrderBy, allowed, defaultField)
	return query.Order(fmt.Sprintf("%s %s", field, validateSortOrder(filter.OrderDir)))
}

// applyPagination appends OFFSET/LIMIT derived from the page settings
func applyPagination(query *gorm.DB, filter shared.Filter) *gorm.DB {
	return query.Offset(filter.Offset()).Limit(filter.Limit())
}
