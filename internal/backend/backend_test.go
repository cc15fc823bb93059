package backend

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/amqp"
	"fintrack/internal/config"
	"fintrack/internal/storage"
	"fintrack/internal/store/memory"
)

func TestFromAppConfig(t *testing.T) {
	_, err := FromAppConfig(nil)
	assert.Error(t, err)

	_, err = FromAppConfig(&config.Config{DataBackend: "postgres"})
	assert.Error(t, err)

	cfg, err := FromAppConfig(&config.Config{DataBackend: "sqlite", SQLiteDBPath: "x.db", AMQPURL: "amqp://h/"})
	require.NoError(t, err)
	assert.Equal(t, SQLiteBackend, cfg.Type)
	assert.Equal(t, "x.db", cfg.SQLiteDBPath)
	assert.Equal(t, "amqp://h/", cfg.AMQPURL)
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, Config{Type: MemoryBackend}.Validate())
	assert.Error(t, Config{Type: SQLiteBackend}.Validate())
	assert.Error(t, Config{Type: "postgres"}.Validate())
}

func TestCreateMemoryBackend(t *testing.T) {
	res, err := NewFactory(nil).CreateBackend(context.Background(), Config{Type: MemoryBackend})
	require.NoError(t, err)
	assert.IsType(t, &memory.Store{}, res.Store)
	assert.NotNil(t, res.Owners)
	assert.Nil(t, res.Events)
	assert.NoError(t, res.Cleanup())
}

func TestCreateSQLiteBackend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "fintrack.db")
	res, err := NewFactory(nil).CreateBackend(context.Background(), Config{Type: SQLiteBackend, SQLiteDBPath: path})
	require.NoError(t, err)
	assert.IsType(t, &storage.SQLiteRepository{}, res.Store)
	assert.NotNil(t, res.Owners)
	assert.NoError(t, res.Cleanup())
}

func TestUnreachableAMQPIsNotFatal(t *testing.T) {
	f := NewFactory(nil)
	f.dial = func(string, string, string) (*amqp.Client, error) {
		return nil, errors.New("connection refused")
	}
	res, err := f.CreateBackend(context.Background(), Config{Type: MemoryBackend, AMQPURL: "amqp://localhost:1/"})
	require.NoError(t, err)
	assert.Nil(t, res.Events)
}
