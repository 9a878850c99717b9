package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"favorites/api/internal/permission"
)

// AddPickToList favorites an item inside a list on behalf of a user.
//
// The list is resolved with an edit requirement first, then both oracles are
// asked concurrently: the catalog for the item's existence and the
// reputation service for the user's score. Neither call is cancelled when
// the other fails; both outcomes are inspected before anything is written.
// A catalog failure aborts, a reputation failure degrades to caching 0 for
// users with no previous score. The pick insert and the score upsert commit
// in one transaction.
func (s *PostgresStore) AddPickToList(ctx context.Context, listID, itemID, userAddress string) (Pick, error) {
	if _, err := s.GetList(ctx, listID, GetListOptions{
		CallerAddress:      userAddress,
		RequiredPermission: permission.Edit,
		IncludeDefaultList: true,
	}); err != nil {
		return Pick{}, err
	}

	var (
		wg        sync.WaitGroup
		exists    bool
		existsErr error
		score     int
		scoreErr  error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		exists, existsErr = s.items.ItemExists(ctx, itemID)
	}()
	go func() {
		defer wg.Done()
		score, scoreErr = s.scores.GetScore(ctx, userAddress)
	}()
	wg.Wait()

	if existsErr != nil {
		return Pick{}, &QueryFailure{Err: existsErr}
	}
	if !exists {
		return Pick{}, &ItemNotFoundError{ItemID: itemID}
	}
	if scoreErr != nil {
		s.log.Warn().Err(scoreErr).Str("user", userAddress).Msg("voting power lookup failed, caching 0 for unknown users")
		score = 0
	}

	var pick Pick
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, `
			INSERT INTO picks (item_id, user_address, list_id)
			VALUES ($1, $2, $3)
			RETURNING item_id, user_address, list_id, created_at
		`, itemID, userAddress, listID)
		if err := row.Scan(&pick.ItemID, &pick.UserAddress, &pick.ListID, &pick.CreatedAt); err != nil {
			return err
		}

		text, args := buildVotingPowerUpsert(userAddress, score, scoreErr == nil)
		if _, err := tx.ExecContext(ctx, text, args...); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		if violatedConstraint(err) == constraintPickPrimaryKey {
			return Pick{}, &PickAlreadyExistsError{ListID: listID, ItemID: itemID}
		}
		s.log.Error().Err(err).Str("listId", listID).Str("itemId", itemID).Msg("create pick failed")
		return Pick{}, ErrPickCouldNotBeCreated
	}
	return pick, nil
}

// DeletePickInList removes a pick. Only the user who made the pick can
// remove it; a viewer of the list gets PickNotFoundError.
func (s *PostgresStore) DeletePickInList(ctx context.Context, listID, itemID, userAddress string) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM picks
		WHERE list_id = $1 AND item_id = $2 AND user_address = $3
	`, listID, itemID, userAddress)
	if err != nil {
		return fmt.Errorf("delete pick: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete pick rows: %w", err)
	}
	if affected == 0 {
		return &PickNotFoundError{ListID: listID, ItemID: itemID}
	}
	return nil
}

// GetPicksByListID returns the picks visible to the caller inside a list:
// their own rows, rows of lists they own, and every row of lists where they
// hold a resolved view grant. The shared default list carries no grants, so
// each caller sees only their own picks there. Newest first, with a
// window-function total.
func (s *PostgresStore) GetPicksByListID(ctx context.Context, listID string, opts GetPicksOptions) ([]Pick, int, error) {
	limit, offset := normalizePage(opts.Limit, opts.Offset)

	q := &queryBuilder{}
	q.write("SELECT p.item_id, p.user_address, p.list_id, p.created_at, COUNT(*) OVER() AS picks_count")
	q.write(" FROM picks p")
	q.write(" WHERE p.list_id = " + q.bind(listID))
	q.write(" AND (p.user_address = " + q.bind(opts.CallerAddress))
	q.write(" OR EXISTS(SELECT 1 FROM lists l WHERE l.id = p.list_id AND l.user_address = " + q.bind(opts.CallerAddress) + ")")
	q.write(" OR EXISTS(SELECT 1 FROM acl WHERE acl.list_id = p.list_id AND ")
	appendGrantPredicate(q, opts.CallerAddress, permission.View)
	q.write("))")
	q.write(" ORDER BY p.created_at DESC")
	appendPagination(q, limit, offset)

	text, args := q.query()
	rows, err := s.db.QueryContext(ctx, text, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("get picks by list: %w", err)
	}
	defer rows.Close()

	var total int
	picks := make([]Pick, 0)
	for rows.Next() {
		var pick Pick
		if err := rows.Scan(&pick.ItemID, &pick.UserAddress, &pick.ListID, &pick.CreatedAt, &total); err != nil {
			return nil, 0, fmt.Errorf("scan pick: %w", err)
		}
		picks = append(picks, pick)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate picks: %w", err)
	}
	return picks, total, nil
}

// GetPicksByItemID returns the distinct users who favorited an item,
// paginated, with a window-function total.
func (s *PostgresStore) GetPicksByItemID(ctx context.Context, itemID string, limit, offset int) ([]string, int, error) {
	limit, offset = normalizePage(limit, offset)

	rows, err := s.db.QueryContext(ctx, `
		SELECT user_address, COUNT(*) OVER() AS picks_count
		FROM (SELECT DISTINCT user_address FROM picks WHERE item_id = $1) AS pickers
		ORDER BY user_address DESC
		LIMIT $2 OFFSET $3
	`, itemID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("get picks by item: %w", err)
	}
	defer rows.Close()

	var total int
	addresses := make([]string, 0)
	for rows.Next() {
		var address string
		if err := rows.Scan(&address, &total); err != nil {
			return nil, 0, fmt.Errorf("scan picker: %w", err)
		}
		addresses = append(addresses, address)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate pickers: %w", err)
	}
	return addresses, total, nil
}

// GetPickStats counts the distinct users who favorited an item, weighted by
// the cached voting power: only users at or above the threshold count. With
// a caller it also reports whether that caller favorited the item.
func (s *PostgresStore) GetPickStats(ctx context.Context, itemID string, opts PickStatsOptions) (PickStats, error) {
	minPower := DefaultMinVotingPower
	if opts.MinPower != nil {
		minPower = *opts.MinPower
	}
	withCaller := opts.CallerAddress != ""

	q := &queryBuilder{}
	q.write("SELECT COUNT(DISTINCT p.user_address) AS count")
	if withCaller {
		q.write(", (liked.counter > 0) AS liked_by_user")
	}
	q.write(" FROM picks p JOIN voting v ON v.user_address = p.user_address")
	if withCaller {
		q.write(", (SELECT COUNT(*) AS counter FROM picks WHERE user_address = " + q.bind(opts.CallerAddress) +
			" AND item_id = " + q.bind(itemID) + " LIMIT 1) liked")
	}
	q.write(" WHERE p.item_id = " + q.bind(itemID) + " AND v.power >= " + q.bind(minPower))
	if withCaller {
		q.write(" GROUP BY liked.counter")
	}

	text, args := q.query()
	var stats PickStats
	dest := []any{&stats.Count}
	if withCaller {
		dest = append(dest, &stats.LikedByUser)
	}
	err := s.db.QueryRowContext(ctx, text, args...).Scan(dest...)
	if errors.Is(err, sql.ErrNoRows) {
		// Grouped query yields no row when nobody picked the item.
		return PickStats{}, nil
	}
	if err != nil {
		return PickStats{}, fmt.Errorf("get pick stats: %w", err)
	}
	return stats, nil
}
