package store

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"favorites/api/internal/permission"
)

// Constraint names from the migrations. Unique-key violations are translated
// into domain errors at the point of catch; everything else surfaces as one
// of the generic sentinels below so internal detail never leaks to callers.
const (
	constraintListNameUnique = "name_user_address_unique"
	constraintPickPrimaryKey = "item_id_user_address_list_id_primary_key"
	constraintACLPrimaryKey  = "list_id_permission_grantee_primary_key"
)

const pgUniqueViolation = "23505"

var (
	ErrListCouldNotBeCreated = errors.New("the list could not be created")
	ErrListCouldNotBeUpdated = errors.New("the list could not be updated")
	ErrListCouldNotBeDeleted = errors.New("the list could not be deleted")
	ErrPickCouldNotBeCreated = errors.New("the pick could not be created")
	ErrAccessCouldNotChange  = errors.New("the access could not be changed")
)

type ListNotFoundError struct {
	ListID string
}

func (e *ListNotFoundError) Error() string {
	return "the favorites list was not found"
}

type PickNotFoundError struct {
	ListID string
	ItemID string
}

func (e *PickNotFoundError) Error() string {
	return "the pick does not exist or is not accessible by this user"
}

type PickAlreadyExistsError struct {
	ListID string
	ItemID string
}

func (e *PickAlreadyExistsError) Error() string {
	return "the item was already favorited"
}

type ItemNotFoundError struct {
	ItemID string
}

func (e *ItemNotFoundError) Error() string {
	return "the item trying to get favorited doesn't exist"
}

type DuplicatedListError struct {
	Name string
}

func (e *DuplicatedListError) Error() string {
	return fmt.Sprintf("there is already a list with the same name: %s", e.Name)
}

type DuplicatedAccessError struct {
	ListID     string
	Permission permission.Permission
	Grantee    permission.Grantee
}

func (e *DuplicatedAccessError) Error() string {
	return "the access already exists"
}

type AccessNotFoundError struct {
	ListID     string
	Permission permission.Permission
	Grantee    permission.Grantee
}

func (e *AccessNotFoundError) Error() string {
	return "the access doesn't exist"
}

// QueryFailure reports that a hard external dependency could not answer.
type QueryFailure struct {
	Err error
}

func (e *QueryFailure) Error() string {
	return "the query to an external service failed"
}

func (e *QueryFailure) Unwrap() error {
	return e.Err
}

// violatedConstraint returns the constraint name of a unique-key violation,
// or "" when the error is anything else.
func violatedConstraint(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return pgErr.ConstraintName
	}
	return ""
}
