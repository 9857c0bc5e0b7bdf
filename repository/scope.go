package repository

import (
	"food-ordering-api/access"

	"gorm.io/gorm"
)

// inScope restricts q to the tenants allowed by scope.
func inScope(q *gorm.DB, scope access.Scope, column string) *gorm.DB {
	if id, ok := scope.TenantID(); ok {
		return q.Where(column+" = ?", id)
	}
	return q
}
