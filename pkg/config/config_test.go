package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	return v
}

func TestDefaults(t *testing.T) {
	cfg, err := fromViper(newTestViper())
	require.NoError(t, err)

	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, StorageFile, cfg.Storage.Driver)
	assert.Equal(t, "school_db", cfg.Storage.RedisKey)
	assert.Equal(t, 24*time.Hour, cfg.Exports.SignedURLTTL)
	assert.Equal(t, int64(5*1024*1024), cfg.Import.MaxFileSizeBytes)
	assert.False(t, cfg.Auth.Enabled)
	assert.True(t, cfg.Roster.StrictVocabulary)
}

func TestStorageDriverValidated(t *testing.T) {
	v := newTestViper()
	v.Set("STORAGE_DRIVER", "sqlite")

	_, err := fromViper(v)
	require.Error(t, err)

	v.Set("STORAGE_DRIVER", " Redis ")
	cfg, err := fromViper(v)
	require.NoError(t, err)
	assert.Equal(t, StorageRedis, cfg.Storage.Driver)
}

func TestAuthRequiresPINHash(t *testing.T) {
	v := newTestViper()
	v.Set("AUTH_ENABLED", true)

	_, err := fromViper(v)
	require.Error(t, err)

	v.Set("AUTH_PIN_HASH", "$2a$10$abcdefghijklmnopqrstuv")
	cfg, err := fromViper(v)
	require.NoError(t, err)
	assert.True(t, cfg.Auth.Enabled)
}

func TestParseDurationFallback(t *testing.T) {
	assert.Equal(t, time.Minute, parseDuration("", time.Minute))
	assert.Equal(t, time.Minute, parseDuration("soon", time.Minute))
	assert.Equal(t, 90*time.Second, parseDuration("90s", time.Minute))
}

func TestSplitAndTrim(t *testing.T) {
	assert.Nil(t, splitAndTrim(""))
	assert.Equal(t, []string{"http://a", "http://b"}, splitAndTrim(" http://a , ,http://b"))
}
