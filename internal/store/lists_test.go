package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"

	"favorites/api/internal/permission"
)

const (
	testOwner  = "0x24e5f44999c151f08609f8e27b2238c773c4d020"
	testCaller = "0x45abb534bd927284f84b03d43f33dfa10abce394"
	testListID = "99ce0cd8-e822-43e8-9ca9-2e516c2b7b28"
	testItemID = "0xcf77c9ee5bd2b1b40d2c4a630f6e95ba3ee005b0-1"
)

type fakeItems struct {
	itemExistsFn func(ctx context.Context, itemID string) (bool, error)
}

func (f *fakeItems) ItemExists(ctx context.Context, itemID string) (bool, error) {
	if f.itemExistsFn != nil {
		return f.itemExistsFn(ctx, itemID)
	}
	return true, nil
}

type fakeScores struct {
	getScoreFn func(ctx context.Context, address string) (int, error)
}

func (f *fakeScores) GetScore(ctx context.Context, address string) (int, error) {
	if f.getScoreFn != nil {
		return f.getScoreFn(ctx, address)
	}
	return 0, nil
}

func newTestStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock, *fakeItems, *fakeScores) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	items := &fakeItems{}
	scores := &fakeScores{}
	return NewPostgresStore(db, items, scores, zerolog.Nop()), mock, items, scores
}

func uniqueViolation(constraint string) error {
	return &pgconn.PgError{Code: pgUniqueViolation, ConstraintName: constraint}
}

func TestCreateListPublicAddsWildcardGrant(t *testing.T) {
	s, mock, _, _ := newTestStore(t)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO lists").
		WithArgs(sqlmock.AnyArg(), "Wishlist", "things I want", testOwner).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "description", "user_address", "created_at"}).
			AddRow(testListID, "Wishlist", "things I want", testOwner, now))
	mock.ExpectExec("INSERT INTO acl").
		WithArgs(testListID, "*").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	list, err := s.CreateList(context.Background(), NewList{
		Name:         "Wishlist",
		Description:  "things I want",
		OwnerAddress: testOwner,
	})
	if err != nil {
		t.Fatalf("create list: %v", err)
	}
	if list.ID != testListID || list.Name != "Wishlist" || list.Private {
		t.Errorf("unexpected list: %+v", list)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestCreateListPrivateSkipsGrant(t *testing.T) {
	s, mock, _, _ := newTestStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO lists").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "description", "user_address", "created_at"}).
			AddRow(testListID, "Secret", "", testOwner, time.Now()))
	mock.ExpectCommit()

	list, err := s.CreateList(context.Background(), NewList{
		Name:         "Secret",
		OwnerAddress: testOwner,
		Private:      true,
	})
	if err != nil {
		t.Fatalf("create list: %v", err)
	}
	if !list.Private {
		t.Error("expected private list")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestCreateListRollsBackDuplicateName(t *testing.T) {
	s, mock, _, _ := newTestStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO lists").
		WillReturnError(uniqueViolation(constraintListNameUnique))
	mock.ExpectRollback()

	_, err := s.CreateList(context.Background(), NewList{Name: "Wishlist", OwnerAddress: testOwner})
	var dup *DuplicatedListError
	if !errors.As(err, &dup) {
		t.Fatalf("expected DuplicatedListError, got %v", err)
	}
	if dup.Name != "Wishlist" {
		t.Errorf("unexpected name: %s", dup.Name)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestGetListResolvesStrongestGrant(t *testing.T) {
	s, mock, _, _ := newTestStore(t)
	now := time.Now()

	mock.ExpectQuery("SELECT l\\.id, l\\.name").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "name", "description", "user_address", "created_at", "updated_at",
			"permission", "items_count", "is_private",
		}).AddRow(testListID, "Wishlist", "", testOwner, now, nil, "edit", 3, true))

	list, err := s.GetList(context.Background(), testListID, GetListOptions{
		CallerAddress:      testCaller,
		RequiredPermission: permission.View,
	})
	if err != nil {
		t.Fatalf("get list: %v", err)
	}
	if list.Permission != permission.Edit {
		t.Errorf("expected edit, got %s", list.Permission)
	}
	if list.ItemsCount != 3 || !list.Private {
		t.Errorf("unexpected list: %+v", list)
	}
	if list.UpdatedAt != nil {
		t.Error("expected nil updatedAt")
	}
}

func TestGetListHidesInaccessibleLists(t *testing.T) {
	s, mock, _, _ := newTestStore(t)

	mock.ExpectQuery("SELECT l\\.id, l\\.name").
		WillReturnError(sql.ErrNoRows)

	_, err := s.GetList(context.Background(), testListID, GetListOptions{CallerAddress: testCaller})
	var notFound *ListNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected ListNotFoundError, got %v", err)
	}
	if notFound.ListID != testListID {
		t.Errorf("unexpected list id: %s", notFound.ListID)
	}
}

func TestUpdateListRename(t *testing.T) {
	s, mock, _, _ := newTestStore(t)
	now := time.Now()
	name := "Renamed"

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE lists").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "description", "user_address", "created_at", "updated_at"}).
			AddRow(testListID, "Renamed", "", testOwner, now, now))
	mock.ExpectQuery("SELECT COUNT\\(permission\\)").
		WithArgs(testListID).
		WillReturnRows(sqlmock.NewRows([]string{"is_private"}).AddRow(false))
	mock.ExpectCommit()

	list, err := s.UpdateList(context.Background(), testListID, testOwner, ListUpdate{Name: &name})
	if err != nil {
		t.Fatalf("update list: %v", err)
	}
	if list.Name != "Renamed" || list.UpdatedAt == nil {
		t.Errorf("unexpected list: %+v", list)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestUpdateListRenameKeepsDerivedPrivacy(t *testing.T) {
	s, mock, _, _ := newTestStore(t)
	name := "Renamed"

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE lists").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "description", "user_address", "created_at", "updated_at"}).
			AddRow(testListID, "Renamed", "", testOwner, time.Now(), time.Now()))
	mock.ExpectQuery("SELECT COUNT\\(permission\\)").
		WithArgs(testListID).
		WillReturnRows(sqlmock.NewRows([]string{"is_private"}).AddRow(true))
	mock.ExpectCommit()

	list, err := s.UpdateList(context.Background(), testListID, testOwner, ListUpdate{Name: &name})
	if err != nil {
		t.Fatalf("update list: %v", err)
	}
	if !list.Private {
		t.Error("rename must report the list's existing privacy, not reset it")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestUpdateListPrivatizeRemovesWildcardViewGrant(t *testing.T) {
	s, mock, _, _ := newTestStore(t)
	private := true

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id, name").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "description", "user_address", "created_at", "updated_at"}).
			AddRow(testListID, "Wishlist", "", testOwner, time.Now(), nil))
	mock.ExpectExec("DELETE FROM acl").
		WithArgs(testListID, "*").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	list, err := s.UpdateList(context.Background(), testListID, testOwner, ListUpdate{Private: &private})
	if err != nil {
		t.Fatalf("update list: %v", err)
	}
	if !list.Private {
		t.Error("expected private list")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestUpdateListPrivatizeAlreadyPrivate(t *testing.T) {
	s, mock, _, _ := newTestStore(t)
	private := true

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id, name").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "description", "user_address", "created_at", "updated_at"}).
			AddRow(testListID, "Wishlist", "", testOwner, time.Now(), nil))
	mock.ExpectExec("DELETE FROM acl").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := s.UpdateList(context.Background(), testListID, testOwner, ListUpdate{Private: &private})
	var missing *AccessNotFoundError
	if !errors.As(err, &missing) {
		t.Fatalf("expected AccessNotFoundError, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestUpdateListPublicizeReaddsGrant(t *testing.T) {
	s, mock, _, _ := newTestStore(t)
	private := false

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id, name").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "description", "user_address", "created_at", "updated_at"}).
			AddRow(testListID, "Wishlist", "", testOwner, time.Now(), nil))
	mock.ExpectExec("INSERT INTO acl").
		WithArgs(testListID, "*").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	list, err := s.UpdateList(context.Background(), testListID, testOwner, ListUpdate{Private: &private})
	if err != nil {
		t.Fatalf("update list: %v", err)
	}
	if list.Private {
		t.Error("expected public list")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestUpdateListNotOwned(t *testing.T) {
	s, mock, _, _ := newTestStore(t)
	name := "Renamed"

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE lists").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	_, err := s.UpdateList(context.Background(), testListID, testCaller, ListUpdate{Name: &name})
	var notFound *ListNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected ListNotFoundError, got %v", err)
	}
}

func TestDeleteList(t *testing.T) {
	s, mock, _, _ := newTestStore(t)

	mock.ExpectExec("DELETE FROM lists").
		WithArgs(testListID, testOwner).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := s.DeleteList(context.Background(), testListID, testOwner); err != nil {
		t.Fatalf("delete list: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestDeleteListNotOwned(t *testing.T) {
	s, mock, _, _ := newTestStore(t)

	mock.ExpectExec("DELETE FROM lists").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := s.DeleteList(context.Background(), testListID, testCaller)
	var notFound *ListNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected ListNotFoundError, got %v", err)
	}
}

func TestGetListsReturnsWindowTotal(t *testing.T) {
	s, mock, _, _ := newTestStore(t)
	now := time.Now()

	mock.ExpectQuery("SELECT l\\.id, l\\.name").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "name", "description", "user_address", "created_at", "updated_at",
			"items_count", "lists_count",
		}).
			AddRow(DefaultListID, "Favorites", "", DefaultListOwner, now, nil, 2, 12).
			AddRow(testListID, "Wishlist", "", testOwner, now, now, 5, 12))

	lists, total, err := s.GetLists(context.Background(), GetListsOptions{
		CallerAddress: testOwner,
		Limit:         2,
	})
	if err != nil {
		t.Fatalf("get lists: %v", err)
	}
	if total != 12 {
		t.Errorf("expected total 12, got %d", total)
	}
	if len(lists) != 2 || lists[0].ID != DefaultListID {
		t.Errorf("unexpected lists: %+v", lists)
	}
	if lists[1].ItemsCount != 5 {
		t.Errorf("expected 5 items, got %d", lists[1].ItemsCount)
	}
}

func TestGetListsWithItemFlag(t *testing.T) {
	s, mock, _, _ := newTestStore(t)

	mock.ExpectQuery("is_item_in_list").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "name", "description", "user_address", "created_at", "updated_at",
			"items_count", "lists_count", "is_item_in_list",
		}).AddRow(testListID, "Wishlist", "", testOwner, time.Now(), nil, 1, 1, true))

	lists, _, err := s.GetLists(context.Background(), GetListsOptions{
		CallerAddress: testOwner,
		ItemID:        testItemID,
	})
	if err != nil {
		t.Fatalf("get lists: %v", err)
	}
	if len(lists) != 1 || !lists[0].IsItemIn {
		t.Errorf("expected item flag set: %+v", lists)
	}
}
