package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"favorites/api/internal/permission"
)

// CreateList inserts a list owned by the caller. Public lists also get a
// wildcard view grant in the same transaction, so they become readable by
// everyone the moment they exist.
func (s *PostgresStore) CreateList(ctx context.Context, input NewList) (List, error) {
	id := uuid.NewString()
	var list List
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, `
			INSERT INTO lists (id, name, description, user_address)
			VALUES ($1, $2, NULLIF($3, ''), $4)
			RETURNING id, name, COALESCE(description, ''), user_address, created_at
		`, id, input.Name, input.Description, input.OwnerAddress)
		if err := row.Scan(&list.ID, &list.Name, &list.Description, &list.OwnerAddress, &list.CreatedAt); err != nil {
			return err
		}
		if !input.Private {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO acl (list_id, permission, grantee)
				VALUES ($1, 'view', $2)
			`, id, permission.GranteeEveryone); err != nil {
				return err
			}
		}
		list.Private = input.Private
		return nil
	})
	if err != nil {
		if violatedConstraint(err) == constraintListNameUnique {
			return List{}, &DuplicatedListError{Name: input.Name}
		}
		s.log.Error().Err(err).Str("owner", input.OwnerAddress).Msg("create list failed")
		return List{}, ErrListCouldNotBeCreated
	}
	s.log.Info().Str("listId", list.ID).Str("owner", list.OwnerAddress).Bool("private", list.Private).Msg("created list")
	return list, nil
}

// GetList fetches a single list the caller is allowed to see, annotated with
// the caller-scoped item count and the caller's resolved permission. It is
// both get and authorize: a caller with no qualifying grant gets
// ListNotFoundError, never a hint that the list exists.
func (s *PostgresStore) GetList(ctx context.Context, listID string, opts GetListOptions) (ListWithCount, error) {
	q := &queryBuilder{}
	q.write("SELECT l.id, l.name, COALESCE(l.description, ''), l.user_address, l.created_at, ")
	if listID == DefaultListID {
		// The default list never gets updated itself; surface the freshest
		// pick instead.
		q.write("MAX(p.created_at) AS updated_at")
	} else {
		q.write("l.updated_at")
	}
	q.write(", acl.permission, COUNT(p.item_id) AS items_count, COUNT(acl.permission) > 0 AS is_private")
	q.write(" FROM lists l")
	q.write(" LEFT JOIN picks p ON l.id = p.list_id AND p.user_address = " + q.bind(opts.CallerAddress))
	q.write(" LEFT JOIN acl ON l.id = acl.list_id")
	q.write(" WHERE l.id = " + q.bind(listID) + " AND (")
	appendListVisibility(q, opts)
	q.write(")")
	q.write(" GROUP BY l.id, acl.permission")
	// permission is an enum declared as (edit, view): ascending order puts
	// the strongest applicable grant in the single returned row.
	q.write(" ORDER BY acl.permission ASC LIMIT 1")

	text, args := q.query()
	var (
		item      ListWithCount
		updatedAt sql.NullTime
		perm      sql.NullString
	)
	err := s.db.QueryRowContext(ctx, text, args...).Scan(
		&item.ID,
		&item.Name,
		&item.Description,
		&item.OwnerAddress,
		&item.CreatedAt,
		&updatedAt,
		&perm,
		&item.ItemsCount,
		&item.Private,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return ListWithCount{}, &ListNotFoundError{ListID: listID}
	}
	if err != nil {
		return ListWithCount{}, fmt.Errorf("get list: %w", err)
	}
	if updatedAt.Valid {
		at := updatedAt.Time
		item.UpdatedAt = &at
	}
	if perm.Valid {
		item.Permission = permission.Permission(perm.String)
	}
	return item, nil
}

// UpdateList applies the supplied changes in one transaction. Toggling
// privacy adds or removes the wildcard view grant alongside the field
// update, so visibility and the stored flag cannot drift apart.
func (s *PostgresStore) UpdateList(ctx context.Context, id, owner string, update ListUpdate) (List, error) {
	var list List
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var row *sql.Row
		if update.Name != nil || update.Description != nil {
			row = tx.QueryRowContext(ctx, `
				UPDATE lists
				SET name = COALESCE($3, name), description = COALESCE($4, description), updated_at = NOW()
				WHERE id = $1 AND user_address = $2
				RETURNING id, name, COALESCE(description, ''), user_address, created_at, updated_at
			`, id, owner, update.Name, update.Description)
		} else {
			row = tx.QueryRowContext(ctx, `
				SELECT id, name, COALESCE(description, ''), user_address, created_at, updated_at
				FROM lists
				WHERE id = $1 AND user_address = $2
			`, id, owner)
		}
		var updatedAt sql.NullTime
		if err := row.Scan(&list.ID, &list.Name, &list.Description, &list.OwnerAddress, &list.CreatedAt, &updatedAt); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return &ListNotFoundError{ListID: id}
			}
			return err
		}
		if updatedAt.Valid {
			at := updatedAt.Time
			list.UpdatedAt = &at
		}

		if update.Private == nil {
			// No toggle requested: derive the flag the way the read path
			// does, from the presence of grant rows.
			return tx.QueryRowContext(ctx, `
				SELECT COUNT(permission) > 0 FROM acl WHERE list_id = $1
			`, id).Scan(&list.Private)
		}
		if *update.Private {
			// Privatizing removes only the wildcard view grant. Wildcard
			// edit grants, if any, survive the toggle.
			result, err := tx.ExecContext(ctx, `
				DELETE FROM acl
				WHERE list_id = $1 AND permission = 'view' AND grantee = $2
			`, id, permission.GranteeEveryone)
			if err != nil {
				return err
			}
			affected, err := result.RowsAffected()
			if err != nil {
				return err
			}
			if affected == 0 {
				return &AccessNotFoundError{ListID: id, Permission: permission.View, Grantee: permission.Everyone()}
			}
		} else {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO acl (list_id, permission, grantee)
				VALUES ($1, 'view', $2)
			`, id, permission.GranteeEveryone); err != nil {
				return err
			}
		}
		list.Private = *update.Private
		return nil
	})
	if err != nil {
		var notFound *ListNotFoundError
		var accessMissing *AccessNotFoundError
		if errors.As(err, &notFound) || errors.As(err, &accessMissing) {
			return List{}, err
		}
		switch violatedConstraint(err) {
		case constraintListNameUnique:
			name := ""
			if update.Name != nil {
				name = *update.Name
			}
			return List{}, &DuplicatedListError{Name: name}
		case constraintACLPrimaryKey:
			return List{}, &DuplicatedAccessError{ListID: id, Permission: permission.View, Grantee: permission.Everyone()}
		}
		s.log.Error().Err(err).Str("listId", id).Msg("update list failed")
		return List{}, ErrListCouldNotBeUpdated
	}
	return list, nil
}

// DeleteList hard-deletes a list owned by the caller; picks and grants go
// with it via cascade. A miss and a non-owned list are indistinguishable on
// purpose.
func (s *PostgresStore) DeleteList(ctx context.Context, id, owner string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM lists WHERE id = $1 AND user_address = $2`, id, owner)
	if err != nil {
		s.log.Error().Err(err).Str("listId", id).Msg("delete list failed")
		return ErrListCouldNotBeDeleted
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete list rows: %w", err)
	}
	if affected == 0 {
		return &ListNotFoundError{ListID: id}
	}
	s.log.Info().Str("listId", id).Str("owner", owner).Msg("deleted list")
	return nil
}

// GetLists returns the caller's lists plus the default list, each with the
// caller-scoped item count and a window-function total. The default list
// always sorts first; the requested ordering applies after it.
func (s *PostgresStore) GetLists(ctx context.Context, opts GetListsOptions) ([]ListWithCount, int, error) {
	limit, offset := normalizePage(opts.Limit, opts.Offset)
	withItemFlag := opts.ItemID != ""

	q := &queryBuilder{}
	q.write("SELECT l.id, l.name, COALESCE(l.description, ''), l.user_address, l.created_at, l.updated_at")
	q.write(", COUNT(p.item_id) AS items_count, COUNT(*) OVER() AS lists_count")
	if withItemFlag {
		q.write(", EXISTS(SELECT 1 FROM picks sp WHERE sp.list_id = l.id AND sp.user_address = " + q.bind(opts.CallerAddress) +
			" AND sp.item_id = " + q.bind(opts.ItemID) + ") AS is_item_in_list")
	}
	q.write(" FROM lists l")
	q.write(" LEFT JOIN picks p ON l.id = p.list_id AND p.user_address = " + q.bind(opts.CallerAddress))
	q.write(" WHERE (l.user_address = " + q.bind(opts.CallerAddress) + " OR l.user_address = " + q.bind(DefaultListOwner) + ")")
	if opts.NameFilter != "" {
		q.write(" AND l.name ILIKE '%' || " + q.bind(opts.NameFilter) + " || '%'")
	}
	q.write(" GROUP BY l.id")
	q.write(" ORDER BY (l.user_address = " + q.bind(DefaultListOwner) + ") DESC")
	q.write(", l." + sortColumn(opts.SortBy) + " " + sortDirection(opts.SortDirection))
	appendPagination(q, limit, offset)

	text, args := q.query()
	rows, err := s.db.QueryContext(ctx, text, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("get lists: %w", err)
	}
	defer rows.Close()

	var total int
	items := make([]ListWithCount, 0)
	for rows.Next() {
		var (
			item      ListWithCount
			updatedAt sql.NullTime
		)
		dest := []any{
			&item.ID,
			&item.Name,
			&item.Description,
			&item.OwnerAddress,
			&item.CreatedAt,
			&updatedAt,
			&item.ItemsCount,
			&total,
		}
		if withItemFlag {
			dest = append(dest, &item.IsItemIn)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, 0, fmt.Errorf("scan list: %w", err)
		}
		if updatedAt.Valid {
			at := updatedAt.Time
			item.UpdatedAt = &at
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate lists: %w", err)
	}
	return items, total, nil
}
