package crypto

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/authcore/internal/domain/models"
	"github.com/turtacn/authcore/internal/domain/service/mocks"
	"github.com/turtacn/authcore/pkg/constants"
	"github.com/turtacn/authcore/pkg/errors"
	"github.com/turtacn/authcore/pkg/logger"
)

func newSource(current string, ok bool, old []string, debug bool) *mocks.MockConfigSource {
	src := new(mocks.MockConfigSource)
	src.On("CurrentKeyValue", mock.Anything).Return(current, ok, nil)
	src.On("OldKeyValues", mock.Anything).Return(old, nil)
	src.On("IsDebugMode").Return(debug)
	return src
}

func TestKeyLoader_ProductionRequiresKey(t *testing.T) {
	loader := NewKeyLoader(newSource("", false, nil, false), KeyLoaderOptions{}, nil, logger.NewNoopLogger())

	store, err := loader.Load(context.Background())
	require.Error(t, err)
	assert.Nil(t, store)
	assert.True(t, errors.Is(err, errors.ErrConfiguration))
	assert.Contains(t, err.Error(), "production requires an explicit signing key")
}

func TestKeyLoader_DebugGeneratesKey(t *testing.T) {
	audit := new(mocks.MockAuditService)
	audit.On("LogEvent", mock.Anything, mock.MatchedBy(func(e models.AuditEvent) bool {
		return e.Type == constants.AuditEventKeyGenerated
	})).Return(nil).Once()

	loader := NewKeyLoader(newSource("", false, nil, true), KeyLoaderOptions{}, audit, logger.NewNoopLogger())

	store, err := loader.Load(context.Background())
	require.NoError(t, err)
	assert.GreaterOrEqual(t, store.Current().Len(), 32)
	assert.Nil(t, store.LastRotatedAt())
	audit.AssertExpectations(t)
}

func TestKeyLoader_DebugGeneratedKeyMustMeetMinLength(t *testing.T) {
	audit := new(mocks.MockAuditService)
	loader := NewKeyLoader(newSource("", false, nil, true), KeyLoaderOptions{MinLength: 32, GenerateBytes: 8}, audit, logger.NewNoopLogger())

	store, err := loader.Load(context.Background())
	require.Error(t, err)
	assert.Nil(t, store)
	assert.True(t, errors.Is(err, errors.ErrConfiguration))
	audit.AssertNotCalled(t, "LogEvent", mock.Anything, mock.Anything)
}

func TestKeyLoader_InvalidCurrentIsFatalInAnyMode(t *testing.T) {
	for _, debug := range []bool{true, false} {
		loader := NewKeyLoader(newSource("too-short", true, nil, debug), KeyLoaderOptions{}, nil, logger.NewNoopLogger())
		_, err := loader.Load(context.Background())
		assert.True(t, errors.Is(err, errors.ErrConfiguration), "debug=%v", debug)
	}
}

func TestKeyLoader_OldKeys(t *testing.T) {
	current := models.GenerateKeyMaterial(32).Value()
	k1 := models.GenerateKeyMaterial(32).Value()
	k2 := models.GenerateKeyMaterial(32).Value()
	k3 := models.GenerateKeyMaterial(32).Value()
	k4 := models.GenerateKeyMaterial(32).Value()

	loader := NewKeyLoader(
		newSource(current, true, []string{k1, "bad key!", current, k2, k3, k4}, false),
		KeyLoaderOptions{MaxRetired: 3}, nil, logger.NewNoopLogger())

	store, err := loader.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, current, store.Current().Value())

	retired := store.Retired()
	require.Len(t, retired, 3)
	assert.Equal(t, k1, retired[0].Value())
	assert.Equal(t, k2, retired[1].Value())
	assert.Equal(t, k3, retired[2].Value())
}

func TestKeyLoader_SourceFailure(t *testing.T) {
	src := new(mocks.MockConfigSource)
	src.On("CurrentKeyValue", mock.Anything).Return("", false, fmt.Errorf("vault unreachable"))

	_, err := NewKeyLoader(src, KeyLoaderOptions{}, nil, logger.NewNoopLogger()).Load(context.Background())
	assert.True(t, errors.Is(err, errors.ErrConfiguration))

	current := models.GenerateKeyMaterial(32).Value()
	src = new(mocks.MockConfigSource)
	src.On("CurrentKeyValue", mock.Anything).Return(current, true, nil)
	src.On("OldKeyValues", mock.Anything).Return(nil, fmt.Errorf("permission denied"))

	_, err = NewKeyLoader(src, KeyLoaderOptions{}, nil, logger.NewNoopLogger()).Load(context.Background())
	assert.True(t, errors.Is(err, errors.ErrConfiguration))
}
