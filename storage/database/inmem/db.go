// Package inmem implements the entity repositories on in-process maps. It
// mirrors the database package's filtering, scoping and pagination semantics
// and backs the service and API tests.
package inmem

import (
	"strings"
	"sync"

	"github.com/shulehq/shule/core"
	"github.com/shulehq/shule/core/school"
	"github.com/shulehq/shule/core/student"
	"github.com/shulehq/shule/core/user"
)

type DB struct {
	mu       sync.RWMutex
	users    map[string]user.User
	schools  map[string]school.School
	students map[string]student.Student
}

func NewDB() *DB {
	return &DB{
		users:    make(map[string]user.User),
		schools:  make(map[string]school.School),
		students: make(map[string]student.Student),
	}
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

// paginate returns the slice bounds of one page over n records.
func paginate(n int, params core.ListParams) (int, int) {
	lo := params.Offset()
	if lo > n {
		lo = n
	}
	hi := lo + params.Limit
	if hi > n {
		hi = n
	}
	return lo, hi
}

// orderBy flips a less function when the descending order is requested.
func orderBy(params core.ListParams, less func(i, j int) bool) func(i, j int) bool {
	if params.SortOrder == core.SortDescending {
		return func(i, j int) bool { return less(j, i) }
	}
	return less
}
