// Package permission holds the pure grant-resolution rules for favorites
// lists. It knows nothing about storage: the stores feed it grant rows and
// ask whether a caller qualifies.
package permission

// Permission is a grant level over a list. The values match the Postgres
// enum, whose declaration order (edit before view) is what lets queries sort
// the strongest applicable grant first.
type Permission string

const (
	Edit Permission = "edit"
	View Permission = "view"
)

// GranteeEveryone is the wire representation of a grant extended to every
// address.
const GranteeEveryone = "*"

// Grantee is who a grant extends to: one address, or everyone.
type Grantee struct {
	address  string
	everyone bool
}

// Address returns a grantee for a single wallet address.
func Address(addr string) Grantee {
	return Grantee{address: addr}
}

// Everyone returns the wildcard grantee.
func Everyone() Grantee {
	return Grantee{everyone: true}
}

// ParseGrantee interprets the stored grantee column.
func ParseGrantee(raw string) Grantee {
	if raw == GranteeEveryone {
		return Everyone()
	}
	return Address(raw)
}

func (g Grantee) IsEveryone() bool {
	return g.everyone
}

// String returns the stored form of the grantee.
func (g Grantee) String() string {
	if g.everyone {
		return GranteeEveryone
	}
	return g.address
}

// Matches reports whether the grantee covers the caller.
func (g Grantee) Matches(caller string) bool {
	return g.everyone || g.address == caller
}

// Grant is one ACL row.
type Grant struct {
	Permission Permission
	Grantee    Grantee
}

// Valid reports whether p is a known grant level.
func (p Permission) Valid() bool {
	return p == Edit || p == View
}

// Satisfies reports whether holding p meets a required level. Edit implies
// view; view does not imply edit.
func (p Permission) Satisfies(required Permission) bool {
	if p == required {
		return true
	}
	return p == Edit && required == View
}

// Expand returns the set of stored levels that satisfy a required level.
// This is the single place the edit-implies-view rule is turned into a
// queryable set.
func Expand(required Permission) []Permission {
	if required == View {
		return []Permission{View, Edit}
	}
	return []Permission{required}
}

// Resolve reports whether the caller holds the required level over the
// granted set. Ownership is not represented here; the stores short-circuit
// it before consulting grants.
func Resolve(required Permission, grants []Grant, caller string) bool {
	for _, grant := range grants {
		if grant.Grantee.Matches(caller) && grant.Permission.Satisfies(required) {
			return true
		}
	}
	return false
}

// Strongest returns the strongest level any matching grant extends to the
// caller. When both an edit and a view grant apply, edit wins.
func Strongest(grants []Grant, caller string) (Permission, bool) {
	var (
		found  bool
		result Permission
	)
	for _, grant := range grants {
		if !grant.Grantee.Matches(caller) {
			continue
		}
		if grant.Permission == Edit {
			return Edit, true
		}
		result = grant.Permission
		found = true
	}
	return result, found
}
