package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigFrom_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/socialvibe")

	cfg, err := LoadConfigFrom(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "3001", cfg.Port)
	assert.Equal(t, "supabase", cfg.StorageDriver)
	assert.Equal(t, "avatars", cfg.AvatarBucket)
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins())
	assert.Equal(t, 15*time.Second, cfg.ReadTimeout)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "@every 10m", cfg.ReconcileSchedule)
	assert.Empty(t, cfg.KafkaBrokerList())
}

func TestLoadConfigFrom_EnvFileAndOverride(t *testing.T) {
	dir := t.TempDir()
	content := "DATABASE_URL=postgres://file/db\nPORT=4000\nKAFKA_BROKERS=a:9092, b:9092\nSMTP_PORT=2525\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte(content), 0o600))
	t.Setenv("PORT", "5000")

	cfg, err := LoadConfigFrom(dir)
	require.NoError(t, err)

	assert.Equal(t, "postgres://file/db", cfg.DatabaseURL)
	assert.Equal(t, "5000", cfg.Port)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.KafkaBrokerList())
	assert.Equal(t, 2525, cfg.SMTPPort)
}

func TestLoadConfigFrom_MissingDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	_, err := LoadConfigFrom(t.TempDir())
	assert.EqualError(t, err, "DATABASE_URL is required")
}

func TestValidate_StorageDriver(t *testing.T) {
	cfg := &Config{DatabaseURL: "x", StorageDriver: "ftp"}
	assert.Error(t, cfg.Validate())

	cfg.StorageDriver = "s3"
	assert.NoError(t, cfg.Validate())
}
