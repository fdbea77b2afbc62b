package postgres

import (
	"errors"
	"fmt"
	"strings"

	"github.com/SAP-F-2025/lms-service/internal/repositories"
	"gorm.io/gorm"
)

// pickDB returns tx when the caller runs inside a transaction, otherwise db
func pickDB(db, tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return db
}

// handleDBError wraps driver errors with the failed operation.
// Not-found and duplicate errors are normalized so callers can match them with errors.Is.
func handleDBError(err error, operation string) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%s failed: %w", operation, repositories.ErrNotFound)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%s failed: %w", operation, repositories.ErrDuplicate)
	}
	return fmt.Errorf("%s failed: %w", operation, err)
}

// sortColumns maps API sort keys to SQL identifiers
type sortColumns map[string]string

// applyPaginationAndSort orders by a whitelisted column and applies limit/offset.
// Unknown sort keys fall back to defaultColumn with defaultOrder.
func applyPaginationAndSort(query *gorm.DB, allowed sortColumns, defaultColumn, defaultOrder, sortBy, sortOrder string, limit, offset int) *gorm.DB {
	column, ok := allowed[sortBy]
	if !ok {
		column = defaultColumn
	}

	order := defaultOrder
	switch sortOrder {
	case "asc", "ASC":
		order = "ASC"
	case "desc", "DESC":
		order = "DESC"
	}

	query = query.Order(fmt.Sprintf("%s %s", column, order))

	// tie-break on the primary key of the same table for stable pages
	idColumn := "id"
	if i := strings.LastIndex(column, "."); i >= 0 {
		idColumn = column[:i+1] + "id"
	}
	if column != idColumn {
		query = query.Order(idColumn + " " + order)
	}

	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	return query
}

// checkRowsAffected turns a compare-and-set miss into ErrStaleState
func checkRowsAffected(result *gorm.DB, operation string) error {
	if result.Error != nil {
		return handleDBError(result.Error, operation)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%s failed: %w", operation, repositories.ErrStaleState)
	}
	return nil
}
