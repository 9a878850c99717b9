package store

import (
	"strings"
	"testing"

	"favorites/api/internal/permission"
)

func TestQueryBuilderBindNumbersPlaceholders(t *testing.T) {
	q := &queryBuilder{}
	q.write("SELECT * FROM lists WHERE id = " + q.bind("a") + " AND user_address = " + q.bind("b"))
	text, args := q.query()

	if text != "SELECT * FROM lists WHERE id = $1 AND user_address = $2" {
		t.Errorf("unexpected sql: %s", text)
	}
	if len(args) != 2 || args[0] != "a" || args[1] != "b" {
		t.Errorf("unexpected args: %v", args)
	}
}

func TestAppendListVisibility(t *testing.T) {
	tests := []struct {
		name     string
		opts     GetListOptions
		wantSQL  []string
		skipSQL  []string
		wantArgs int
	}{
		{
			name:     "ownership only",
			opts:     GetListOptions{CallerAddress: testCaller},
			wantSQL:  []string{"(l.user_address = $1)"},
			skipSQL:  []string{"acl.grantee"},
			wantArgs: 1,
		},
		{
			name:     "with default list",
			opts:     GetListOptions{CallerAddress: testCaller, IncludeDefaultList: true},
			wantSQL:  []string{"l.user_address = $1 OR l.user_address = $2"},
			wantArgs: 2,
		},
		{
			name:     "view requirement includes edit grants",
			opts:     GetListOptions{CallerAddress: testCaller, RequiredPermission: permission.View},
			wantSQL:  []string{"acl.grantee = $2", "acl.grantee = $3", "ARRAY['view', 'edit']::permission[]"},
			wantArgs: 3,
		},
		{
			name:     "edit requirement matches edit only",
			opts:     GetListOptions{CallerAddress: testCaller, RequiredPermission: permission.Edit},
			wantSQL:  []string{"ARRAY['edit']::permission[]"},
			skipSQL:  []string{"'view'"},
			wantArgs: 3,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			q := &queryBuilder{}
			appendListVisibility(q, tc.opts)
			text, args := q.query()
			for _, want := range tc.wantSQL {
				if !strings.Contains(text, want) {
					t.Errorf("missing %q in %q", want, text)
				}
			}
			for _, skip := range tc.skipSQL {
				if strings.Contains(text, skip) {
					t.Errorf("unexpected %q in %q", skip, text)
				}
			}
			if len(args) != tc.wantArgs {
				t.Errorf("expected %d args, got %v", tc.wantArgs, args)
			}
		})
	}
}

func TestAppendGrantPredicateMatchesWildcard(t *testing.T) {
	q := &queryBuilder{}
	appendGrantPredicate(q, testCaller, permission.View)
	text, args := q.query()

	if !strings.Contains(text, "acl.grantee = $1 OR acl.grantee = $2") {
		t.Errorf("unexpected predicate: %s", text)
	}
	if args[0] != testCaller || args[1] != permission.GranteeEveryone {
		t.Errorf("unexpected args: %v", args)
	}
}

func TestNormalizePage(t *testing.T) {
	tests := []struct {
		limit, offset         int
		wantLimit, wantOffset int
	}{
		{0, 0, 100, 0},
		{50, 10, 50, 10},
		{101, 0, 100, 0},
		{-1, -5, 100, 0},
		{100, 200, 100, 200},
	}
	for _, tc := range tests {
		limit, offset := normalizePage(tc.limit, tc.offset)
		if limit != tc.wantLimit || offset != tc.wantOffset {
			t.Errorf("normalizePage(%d, %d) = (%d, %d), want (%d, %d)",
				tc.limit, tc.offset, limit, offset, tc.wantLimit, tc.wantOffset)
		}
	}
}

func TestSortColumnFallsBackToCreatedAt(t *testing.T) {
	if got := sortColumn(ListSortByName); got != "name" {
		t.Errorf("unexpected column: %s", got)
	}
	if got := sortColumn(ListSortBy("drop table")); got != "created_at" {
		t.Errorf("unexpected column: %s", got)
	}
	if got := sortDirection(SortDescending); got != "DESC" {
		t.Errorf("unexpected direction: %s", got)
	}
	if got := sortDirection(SortDirection("junk")); got != "ASC" {
		t.Errorf("unexpected direction: %s", got)
	}
}
