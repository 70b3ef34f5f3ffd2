package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/example/ordershop/pkg/config"
	"github.com/example/ordershop/pkg/models"
	"github.com/example/ordershop/pkg/orders"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func NewMySQL(cfg *config.MySQLConfig) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(cfg.DSN()), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("connect mysql: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)

	return db, nil
}

// UserCacher is the read-through cache in front of the users table.
type UserCacher interface {
	GetUserCache(ctx context.Context, userID string) (*models.User, error)
	CacheUser(ctx context.Context, user *models.User) error
}

// UserRepository reads user profiles owned by the account service.
type UserRepository struct {
	db     *gorm.DB
	cache  UserCacher
	logger *zap.Logger
}

func NewUserRepository(db *gorm.DB, cache UserCacher, logger *zap.Logger) *UserRepository {
	return &UserRepository{db: db, cache: cache, logger: logger.Named("users")}
}

// GetUser serves from the cache when it can. Cache failures fall through to
// MySQL and are only logged.
func (u *UserRepository) GetUser(ctx context.Context, id string) (*models.User, error) {
	if u.cache != nil {
		cached, err := u.cache.GetUserCache(ctx, id)
		if err == nil {
			return cached, nil
		}
		if !errors.Is(err, orders.ErrNotFound) {
			u.logger.Warn("User cache read failed", zap.String("user_id", id), zap.Error(err))
		}
	}

	var user models.User
	if err := u.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, orders.NotFound("User not found", err)
		}
		return nil, orders.Persistence("find user", err)
	}

	if u.cache != nil {
		if err := u.cache.CacheUser(ctx, &user); err != nil {
			u.logger.Warn("User cache write failed", zap.String("user_id", id), zap.Error(err))
		}
	}
	return &user, nil
}
