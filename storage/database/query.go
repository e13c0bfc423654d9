package database

import (
	"strconv"

	"gorm.io/gorm"

	"github.com/shulehq/shule/core"
)

type colKind int

const (
	colText   colKind = iota // case-insensitive substring match
	colExact                 // string equality
	colNumber                // numeric equality
)

type column struct {
	name string // database column
	kind colKind
}

// listSpec drives the shared list pipeline: keyword search against a
// canonical column, fieldName/fieldValue filtering against an allow-list,
// sorting against the same allow-list, then offset pagination. Unknown field
// or sort names are ignored rather than rejected, as are non-numeric values
// against numeric columns. When no sort is requested the defaultSort column is
// applied anyway: pages stay stable across requests instead of leaving the row
// order to the database.
type listSpec struct {
	searchColumn string
	defaultSort  string
	columns      map[string]column // keyed by the public field name
}

func (s listSpec) apply(db *gorm.DB, params core.ListParams) *gorm.DB {
	if params.Keyword != "" {
		db = db.Where(s.searchColumn+" ILIKE ?", "%"+params.Keyword+"%")
	}
	if params.FieldName == "" || params.FieldValue == "" {
		return db
	}
	col, ok := s.columns[params.FieldName]
	if !ok {
		return db
	}
	switch col.kind {
	case colText:
		db = db.Where(col.name+" ILIKE ?", "%"+params.FieldValue+"%")
	case colExact:
		db = db.Where(col.name+" = ?", params.FieldValue)
	case colNumber:
		if n, err := strconv.Atoi(params.FieldValue); err == nil {
			db = db.Where(col.name+" = ?", n)
		}
	}
	return db
}

func (s listSpec) order(params core.ListParams) string {
	col := s.defaultSort
	if sortCol, ok := s.columns[params.SortBy]; ok {
		col = sortCol.name
	}
	if params.SortOrder == core.SortDescending {
		return col + " DESC"
	}
	return col + " ASC"
}

// list runs the pipeline and fills dest with one page, returning the
// filtered-but-unpaginated total.
func (s listSpec) list(db *gorm.DB, params core.ListParams, dest interface{}) (int64, error) {
	db = s.apply(db, params)

	var total int64
	if err := db.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return 0, err
	}
	err := db.
		Order(s.order(params)).
		Offset(params.Offset()).
		Limit(params.Limit).
		Find(dest).Error
	return total, err
}
