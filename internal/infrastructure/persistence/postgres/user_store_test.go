package postgres

import (
	"context"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/turtacn/authcore/internal/config"
	"github.com/turtacn/authcore/internal/domain/models"
	"github.com/turtacn/authcore/pkg/errors"
	"github.com/turtacn/authcore/pkg/logger"
)

func setupDB(t *testing.T) *DBConnection {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "users.db")), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	conn, err := WrapDB(context.Background(), db, logger.NewNoopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	require.NoError(t, conn.Migrate(context.Background()))
	return conn
}

func seedUser(t *testing.T, db *gorm.DB, username string, active bool, roles ...string) *models.UserRecord {
	t.Helper()
	user := &models.UserRecord{Username: username, Email: username + "@example.com", IsActive: true}
	for _, name := range roles {
		user.Roles = append(user.Roles, models.Role{Name: name})
	}
	require.NoError(t, db.Create(user).Error)
	if !active {
		require.NoError(t, db.Model(user).Update("is_active", false).Error)
		user.IsActive = false
	}
	return user
}

func TestUserStore_Lookup(t *testing.T) {
	conn := setupDB(t)
	alice := seedUser(t, conn.DB(), "alice", true, "admin", "auditor")
	store := NewUserStore(conn.DB(), logger.NewNoopLogger())

	t.Run("by id", func(t *testing.T) {
		user, err := store.Lookup(context.Background(), itoa(alice.ID))
		require.NoError(t, err)
		assert.Equal(t, "alice", user.Username)
		assert.True(t, user.IsActive)
		assert.Len(t, user.Roles, 2)
	})

	t.Run("by username", func(t *testing.T) {
		user, err := store.Lookup(context.Background(), "alice")
		require.NoError(t, err)
		assert.Equal(t, alice.ID, user.ID)
	})

	t.Run("unknown", func(t *testing.T) {
		user, err := store.Lookup(context.Background(), "99999")
		assert.Nil(t, user)
		assert.True(t, errors.Is(err, errors.ErrUserNotFound))
	})
}

func TestUserStore_InactiveUserIsReturned(t *testing.T) {
	conn := setupDB(t)
	bob := seedUser(t, conn.DB(), "bob", false)
	store := NewUserStore(conn.DB(), logger.NewNoopLogger())

	user, err := store.Lookup(context.Background(), itoa(bob.ID))
	require.NoError(t, err)
	assert.False(t, user.IsActive)
}

func TestUserStore_SimplifiedLookupSurvivesBrokenJoin(t *testing.T) {
	conn := setupDB(t)
	carol := seedUser(t, conn.DB(), "carol", true, "viewer")
	store := NewUserStore(conn.DB(), logger.NewNoopLogger())

	require.NoError(t, conn.DB().Migrator().DropTable("user_roles"))

	_, err := store.Lookup(context.Background(), itoa(carol.ID))
	require.Error(t, err)
	assert.False(t, errors.Is(err, errors.ErrUserNotFound))

	user, err := store.LookupSimplified(context.Background(), itoa(carol.ID))
	require.NoError(t, err)
	assert.Equal(t, "carol", user.Username)
	assert.True(t, user.IsActive)
	assert.Empty(t, user.Roles)

	_, err = store.LookupSimplified(context.Background(), "nobody")
	assert.True(t, errors.Is(err, errors.ErrUserNotFound))
}

func TestUserStore_ClosedDatabase(t *testing.T) {
	conn := setupDB(t)
	store := NewUserStore(conn.DB(), logger.NewNoopLogger())
	require.NoError(t, conn.Close())

	_, err := store.Lookup(context.Background(), "1")
	require.Error(t, err)
	assert.False(t, errors.Is(err, errors.ErrUserNotFound))
}

func TestDBConnection_HealthCheck(t *testing.T) {
	conn := setupDB(t)
	info, err := conn.HealthCheck(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "healthy", info["status"])
}

func TestNewDBConnection_RejectsUnknownDriver(t *testing.T) {
	_, err := NewDBConnection(context.Background(), &config.DatabaseConfig{Driver: "oracle"}, logger.NewNoopLogger())
	assert.True(t, errors.Is(err, errors.ErrConfiguration))
}

func TestNewDBConnection_Sqlite(t *testing.T) {
	conn, err := NewDBConnection(context.Background(), &config.DatabaseConfig{
		Driver:   "sqlite",
		Path:     filepath.Join(t.TempDir(), "authcore.db"),
		MaxConns: 4,
	}, logger.NewNoopLogger())
	require.NoError(t, err)
	defer conn.Close()
	assert.NoError(t, conn.Migrate(context.Background()))
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
