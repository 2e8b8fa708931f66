package store_test

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelfkeeper/shelfkeeper/internal/store"
)

type TestEntity struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

var errTakenEmail = store.ErrAlreadyExists.WithMessage("email taken")

func newTestEntity(s *store.Store) *store.Entity[TestEntity] {
	return store.NewEntity[TestEntity](s, "test:", nil).
		WithIndex("email", func(e *TestEntity) []string {
			return []string{e.Email}
		}, strings.ToLower, errTakenEmail)
}

func TestEntity_CreateAndGet(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	entity := newTestEntity(s)
	ctx := context.Background()

	data := &TestEntity{ID: "1", Name: "Kentaro", Email: "k@example.com"}
	require.NoError(t, entity.Create(ctx, "1", data))

	got, err := entity.Get(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestEntity_Create_AlreadyExists(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	entity := newTestEntity(s)
	ctx := context.Background()

	require.NoError(t, entity.Create(ctx, "1", &TestEntity{ID: "1", Email: "a@example.com"}))

	err := entity.Create(ctx, "1", &TestEntity{ID: "1", Email: "b@example.com"})
	require.ErrorIs(t, err, store.ErrAlreadyExists)
}

func TestEntity_Get_NotFound(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	_, err := newTestEntity(s).Get(context.Background(), "missing")
	require.ErrorIs(t, err, store.ErrNotFound)

	custom := store.NewEntity[TestEntity](s, "other:", store.ErrItemNotFound)
	_, err = custom.Get(context.Background(), "missing")
	assert.Same(t, store.ErrItemNotFound, err)
}

func TestEntity_GetByIndex(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	entity := newTestEntity(s)
	ctx := context.Background()
	require.NoError(t, entity.Create(ctx, "1", &TestEntity{ID: "1", Email: "k@example.com"}))

	got, err := entity.GetByIndex(ctx, "email", "K@Example.com")
	require.NoError(t, err)
	assert.Equal(t, "1", got.ID)

	_, err = entity.GetByIndex(ctx, "email", "nobody@example.com")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestEntity_IndexConflict(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	entity := newTestEntity(s)
	ctx := context.Background()
	require.NoError(t, entity.Create(ctx, "1", &TestEntity{ID: "1", Email: "k@example.com"}))

	err := entity.Create(ctx, "2", &TestEntity{ID: "2", Email: "k@example.com"})
	assert.Same(t, errTakenEmail, err)

	_, err = entity.Get(ctx, "2")
	require.ErrorIs(t, err, store.ErrNotFound, "failed create must not leave a record")
}

func TestEntity_UpdateMovesIndex(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	entity := newTestEntity(s)
	ctx := context.Background()
	require.NoError(t, entity.Create(ctx, "1", &TestEntity{ID: "1", Email: "old@example.com"}))
	require.NoError(t, entity.Create(ctx, "2", &TestEntity{ID: "2", Email: "other@example.com"}))

	// Keeping the same indexed value is not a conflict.
	require.NoError(t, entity.Update(ctx, "1", &TestEntity{ID: "1", Name: "renamed", Email: "old@example.com"}))

	require.NoError(t, entity.Update(ctx, "1", &TestEntity{ID: "1", Email: "new@example.com"}))
	_, err := entity.GetByIndex(ctx, "email", "old@example.com")
	require.ErrorIs(t, err, store.ErrNotFound)
	got, err := entity.GetByIndex(ctx, "email", "new@example.com")
	require.NoError(t, err)
	assert.Equal(t, "1", got.ID)

	err = entity.Update(ctx, "1", &TestEntity{ID: "1", Email: "other@example.com"})
	assert.Same(t, errTakenEmail, err)

	err = entity.Update(ctx, "missing", &TestEntity{ID: "missing"})
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestEntity_Delete(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	entity := newTestEntity(s)
	ctx := context.Background()
	require.NoError(t, entity.Create(ctx, "1", &TestEntity{ID: "1", Email: "k@example.com"}))

	require.NoError(t, entity.Delete(ctx, "1"))
	require.NoError(t, entity.Delete(ctx, "1"), "delete is idempotent")

	_, err := entity.Get(ctx, "1")
	require.ErrorIs(t, err, store.ErrNotFound)

	// The index entry went with the record.
	require.NoError(t, entity.Create(ctx, "2", &TestEntity{ID: "2", Email: "k@example.com"}))
}

func TestEntity_ContextCancellation(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	entity := newTestEntity(s)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	data := &TestEntity{ID: "1"}
	require.ErrorIs(t, entity.Create(ctx, "1", data), context.Canceled)
	_, err := entity.Get(ctx, "1")
	require.ErrorIs(t, err, context.Canceled)
	require.ErrorIs(t, entity.Update(ctx, "1", data), context.Canceled)
	require.ErrorIs(t, entity.Delete(ctx, "1"), context.Canceled)

	expired, cancelExpired := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancelExpired()
	time.Sleep(time.Millisecond)
	require.ErrorIs(t, entity.Create(expired, "1", data), context.DeadlineExceeded)
}

func TestEntity_List(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	entity := newTestEntity(s)
	ctx := context.Background()
	for i := 1; i <= 5; i++ {
		id := fmt.Sprintf("test_%d", i)
		require.NoError(t, entity.Create(ctx, id, &TestEntity{ID: id, Email: id + "@example.com"}))
	}

	var ids []string
	for e, err := range entity.List(ctx) {
		require.NoError(t, err)
		ids = append(ids, e.ID)
	}
	assert.Equal(t, []string{"test_1", "test_2", "test_3", "test_4", "test_5"}, ids, "index keys are skipped")
}

func TestEntity_List_EarlyTermination(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	entity := newTestEntity(s)
	ctx := context.Background()
	for i := 1; i <= 10; i++ {
		id := fmt.Sprintf("test_%02d", i)
		require.NoError(t, entity.Create(ctx, id, &TestEntity{ID: id, Email: id}))
	}

	count := 0
	for _, err := range entity.List(ctx) {
		require.NoError(t, err)
		count++
		if count == 3 {
			break
		}
	}
	assert.Equal(t, 3, count)
}

func TestEntity_List_ContextCancellation(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	entity := newTestEntity(s)
	for i := 1; i <= 5; i++ {
		id := fmt.Sprintf("test_%d", i)
		require.NoError(t, entity.Create(context.Background(), id, &TestEntity{ID: id, Email: id}))
	}

	ctx, cancel := context.WithCancel(context.Background())
	var (
		seen    int
		lastErr error
	)
	for e, err := range entity.List(ctx) {
		if err != nil {
			lastErr = err
			break
		}
		require.NotNil(t, e)
		seen++
		if seen == 2 {
			cancel()
		}
	}
	assert.Equal(t, 2, seen)
	require.ErrorIs(t, lastErr, context.Canceled)
}
