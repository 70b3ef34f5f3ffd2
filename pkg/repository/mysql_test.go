package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/example/ordershop/pkg/models"
	"github.com/example/ordershop/pkg/orders"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const selectUser = "SELECT \\* FROM `users` WHERE id = \\?"

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	return db, mock
}

func userRows() *sqlmock.Rows {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return sqlmock.NewRows([]string{"id", "first_name", "last_name", "email", "role", "created_at", "updated_at", "deleted_at"}).
		AddRow("u1", "Ann", "Lee", "ann@example.com", "user", now, now, nil)
}

type memUserCache struct {
	users   map[string]*models.User
	readErr error
}

func (m *memUserCache) GetUserCache(_ context.Context, id string) (*models.User, error) {
	if m.readErr != nil {
		return nil, m.readErr
	}
	u, ok := m.users[id]
	if !ok {
		return nil, orders.ErrNotFound
	}
	return u, nil
}

func (m *memUserCache) CacheUser(_ context.Context, u *models.User) error {
	m.users[u.ID] = u
	return nil
}

func TestUserRepository_GetUser(t *testing.T) {
	db, mock := newMockDB(t)
	cache := &memUserCache{users: map[string]*models.User{}}
	repo := NewUserRepository(db, cache, zap.NewNop())

	mock.ExpectQuery(selectUser).WillReturnRows(userRows())

	user, err := repo.GetUser(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "Ann", user.FirstName)
	assert.Equal(t, "ann@example.com", user.Email)
	assert.Contains(t, cache.users, "u1")

	// second read is served from the cache
	again, err := repo.GetUser(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "Lee", again.LastName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db, nil, zap.NewNop())

	mock.ExpectQuery(selectUser).WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.GetUser(context.Background(), "ghost")
	require.ErrorIs(t, err, orders.ErrNotFound)
	assert.Equal(t, "User not found", orders.PublicMessage(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_DatabaseError(t *testing.T) {
	db, mock := newMockDB(t)
	cache := &memUserCache{users: map[string]*models.User{}, readErr: errors.New("redis down")}
	repo := NewUserRepository(db, cache, zap.NewNop())

	mock.ExpectQuery(selectUser).WillReturnError(errors.New("connection reset"))

	_, err := repo.GetUser(context.Background(), "u1")
	require.ErrorIs(t, err, orders.ErrPersistence)
	assert.NoError(t, mock.ExpectationsWereMet())
}
