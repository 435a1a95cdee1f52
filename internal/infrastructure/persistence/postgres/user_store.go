package postgres

import (
	"context"
	stderrors "errors"
	"fmt"
	"strconv"
	"time"

	"gorm.io/gorm"

	"github.com/turtacn/authcore/internal/domain/models"
	"github.com/turtacn/authcore/internal/domain/service"
	"github.com/turtacn/authcore/pkg/errors"
	"github.com/turtacn/authcore/pkg/logger"
)

// UserStoreImpl implements service.UserStore on the users table.
// Numeric subjects match the primary key; anything else matches the username.
type UserStoreImpl struct {
	db     *gorm.DB
	logger logger.Logger
}

// NewUserStore creates a gorm-backed user store.
func NewUserStore(db *gorm.DB, log logger.Logger) service.UserStore {
	return &UserStoreImpl{
		db:     db,
		logger: log.WithComponent("UserStore"),
	}
}

// Lookup loads the user with its roles.
func (s *UserStoreImpl) Lookup(ctx context.Context, subject string) (*models.UserRecord, error) {
	start := time.Now()
	var user models.UserRecord
	err := s.bySubject(s.db.WithContext(ctx).Preload("Roles"), subject).First(&user).Error
	if err != nil {
		return nil, s.mapError(ctx, "lookup", subject, err)
	}
	s.logger.Debug(ctx, "User loaded",
		logger.String("subject", subject),
		logger.Int("roles", len(user.Roles)),
		logger.Int64("latency_ms", time.Since(start).Milliseconds()),
	)
	return &user, nil
}

// LookupSimplified reads only the users row, without joins.
func (s *UserStoreImpl) LookupSimplified(ctx context.Context, subject string) (*models.UserRecord, error) {
	var user models.UserRecord
	err := s.bySubject(s.db.WithContext(ctx).Select("id", "username", "email", "is_active"), subject).First(&user).Error
	if err != nil {
		return nil, s.mapError(ctx, "simplified lookup", subject, err)
	}
	return &user, nil
}

func (s *UserStoreImpl) bySubject(tx *gorm.DB, subject string) *gorm.DB {
	if id, err := strconv.ParseUint(subject, 10, 64); err == nil {
		return tx.Where("id = ?", id)
	}
	return tx.Where("username = ?", subject)
}

func (s *UserStoreImpl) mapError(ctx context.Context, op, subject string, err error) error {
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return errors.ErrUserNotFound
	}
	s.logger.Warn(ctx, "User query failed", logger.String("operation", op), logger.String("subject", subject), logger.Error(err))
	return fmt.Errorf("user %s: %w", op, err)
}
