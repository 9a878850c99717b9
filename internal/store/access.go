package store

import (
	"context"
	"fmt"

	"favorites/api/internal/permission"
)

// CreateAccess grants a permission over a list. The requesting owner must
// hold edit over the list; the check rides on GetList so an unauthorized
// caller learns nothing beyond "not found". The default list is excluded:
// its grants are fixed by the migrations.
func (s *PostgresStore) CreateAccess(ctx context.Context, listID string, perm permission.Permission, grantee permission.Grantee, requestingOwner string) error {
	if _, err := s.GetList(ctx, listID, GetListOptions{
		CallerAddress:      requestingOwner,
		RequiredPermission: permission.Edit,
	}); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO acl (list_id, permission, grantee)
		VALUES ($1, $2, $3)
	`, listID, perm, grantee.String())
	if err != nil {
		if violatedConstraint(err) == constraintACLPrimaryKey {
			return &DuplicatedAccessError{ListID: listID, Permission: perm, Grantee: grantee}
		}
		s.log.Error().Err(err).Str("listId", listID).Msg("create access failed")
		return ErrAccessCouldNotChange
	}

	s.log.Info().Str("listId", listID).Str("permission", string(perm)).Str("grantee", grantee.String()).Msg("created access")
	return nil
}

// DeleteAccess removes a grant. The ownership check is part of the delete
// itself: the statement joins lists and only matches rows of lists the
// requesting owner holds.
func (s *PostgresStore) DeleteAccess(ctx context.Context, listID string, perm permission.Permission, grantee permission.Grantee, requestingOwner string) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM acl USING lists
		WHERE acl.list_id = lists.id
		AND acl.list_id = $1
		AND lists.user_address = $2
		AND acl.permission = $3
		AND acl.grantee = $4
	`, listID, requestingOwner, perm, grantee.String())
	if err != nil {
		s.log.Error().Err(err).Str("listId", listID).Msg("delete access failed")
		return ErrAccessCouldNotChange
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete access rows: %w", err)
	}
	if affected == 0 {
		return &AccessNotFoundError{ListID: listID, Permission: perm, Grantee: grantee}
	}

	s.log.Info().Str("listId", listID).Str("permission", string(perm)).Str("grantee", grantee.String()).Msg("deleted access")
	return nil
}
