package store

import (
	"time"

	"favorites/api/internal/permission"
)

// DefaultListOwner is the reserved owner address of the system default list.
// No caller can authenticate as it, so the list is never writable through the
// normal list API.
const DefaultListOwner = "0x0000000000000000000000000000000000000000"

// DefaultListID is the id of the default list seeded by the migrations. It
// is readable by every caller as a fallback when no private list matches.
const DefaultListID = "da8efa16-137f-4d08-b149-3d4a51a55a6b"

type List struct {
	ID           string
	Name         string
	Description  string
	OwnerAddress string
	CreatedAt    time.Time
	UpdatedAt    *time.Time
	Private      bool
}

// ListWithCount is a list row annotated with caller-scoped aggregates: how
// many picks the caller holds in it, the caller's resolved permission, and
// (on filtered listings) whether the filter item is already in it.
type ListWithCount struct {
	List
	ItemsCount int
	Permission permission.Permission
	IsItemIn   bool
}

type Pick struct {
	ItemID      string
	UserAddress string
	ListID      string
	CreatedAt   time.Time
}

type AccessGrant struct {
	ListID     string
	Permission permission.Permission
	Grantee    permission.Grantee
}

type VotingPowerRecord struct {
	UserAddress string
	Power       int
}

// PickStats aggregates how many distinct users favorited an item, counting
// only users whose cached voting power clears the threshold.
type PickStats struct {
	Count       int
	LikedByUser bool
}

type NewList struct {
	Name         string
	Description  string
	OwnerAddress string
	Private      bool
}

// ListUpdate carries the optional fields of an update; nil means unchanged.
type ListUpdate struct {
	Name        *string
	Description *string
	Private     *bool
}

// GetListOptions scope a single-list read. The zero RequiredPermission means
// no grant is needed beyond ownership or the default-list fallback.
type GetListOptions struct {
	CallerAddress      string
	RequiredPermission permission.Permission
	IncludeDefaultList bool
}

type ListSortBy string

const (
	ListSortByCreatedAt ListSortBy = "created_at"
	ListSortByName      ListSortBy = "name"
)

type SortDirection string

const (
	SortAscending  SortDirection = "ASC"
	SortDescending SortDirection = "DESC"
)

type GetListsOptions struct {
	CallerAddress string
	Limit         int
	Offset        int
	SortBy        ListSortBy
	SortDirection SortDirection
	NameFilter    string
	ItemID        string
}

type GetPicksOptions struct {
	CallerAddress string
	Limit         int
	Offset        int
}

// PickStatsOptions tune the stats aggregate. MinPower overrides the default
// voting-power threshold; CallerAddress additionally reports whether that
// caller favorited the item.
type PickStatsOptions struct {
	CallerAddress string
	MinPower      *int
}

// DefaultMinVotingPower is the threshold applied to pick stats when the
// caller does not supply one.
const DefaultMinVotingPower = 5
