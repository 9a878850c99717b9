package store

import (
	"strconv"
	"strings"

	"favorites/api/internal/permission"
)

// queryBuilder accumulates SQL text together with positional args, keeping
// composed fragments aligned with their placeholders.
type queryBuilder struct {
	sql  strings.Builder
	args []any
}

func (q *queryBuilder) write(text string) {
	q.sql.WriteString(text)
}

// bind appends a query argument and returns its placeholder.
func (q *queryBuilder) bind(value any) string {
	q.args = append(q.args, value)
	return "$" + strconv.Itoa(len(q.args))
}

func (q *queryBuilder) query() (string, []any) {
	return q.sql.String(), q.args
}

// appendListVisibility writes the predicate deciding whether the caller may
// see a list row: ownership, optionally the default-list fallback, and
// optionally a resolved grant at the required level. The table aliases are
// fixed: l for lists, acl for the grants join.
func appendListVisibility(q *queryBuilder, opts GetListOptions) {
	q.write("(l.user_address = " + q.bind(opts.CallerAddress))
	if opts.IncludeDefaultList {
		q.write(" OR l.user_address = " + q.bind(DefaultListOwner))
	}
	q.write(")")
	if opts.RequiredPermission != "" {
		q.write(" OR ")
		appendGrantPredicate(q, opts.CallerAddress, opts.RequiredPermission)
	}
}

// appendGrantPredicate writes the ACL clause matching the caller or the
// wildcard grantee at any level satisfying the requirement.
func appendGrantPredicate(q *queryBuilder, caller string, required permission.Permission) {
	q.write("((acl.grantee = " + q.bind(caller) +
		" OR acl.grantee = " + q.bind(permission.GranteeEveryone) +
		") AND acl.permission = ANY(" + permissionArray(required) + "))")
}

// permissionArray renders the enum array literal of levels satisfying the
// requirement. The values come from our own constants, never from input.
func permissionArray(required permission.Permission) string {
	levels := permission.Expand(required)
	quoted := make([]string, len(levels))
	for i, level := range levels {
		quoted[i] = "'" + string(level) + "'"
	}
	return "ARRAY[" + strings.Join(quoted, ", ") + "]::permission[]"
}

// appendPagination writes LIMIT/OFFSET with the given page window.
func appendPagination(q *queryBuilder, limit, offset int) {
	q.write(" LIMIT " + q.bind(limit) + " OFFSET " + q.bind(offset))
}

const (
	defaultPageLimit = 100
	maxPageLimit     = 100
)

// normalizePage clamps the page window to the supported range.
func normalizePage(limit, offset int) (int, int) {
	if limit <= 0 || limit > maxPageLimit {
		limit = defaultPageLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// sortColumn maps the fixed sorting options onto column names. Anything
// unknown falls back to creation time.
func sortColumn(by ListSortBy) string {
	switch by {
	case ListSortByName:
		return "name"
	default:
		return "created_at"
	}
}

func sortDirection(direction SortDirection) string {
	if direction == SortDescending {
		return "DESC"
	}
	return "ASC"
}
