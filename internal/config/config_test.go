package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/codigloo/contestd/internal/config"
)

type testConfig struct {
	HTTP struct {
		Port int32
	}

	Redis struct {
		Prefix string
	}

	Postgres struct {
		Addr string
	}
}

func TestLoad(t *testing.T) {
	file := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(file, []byte("postgres:\n  addr: db:5432\n"), 0o600))

	t.Setenv("REDIS_PREFIX", "staging")

	c := testConfig{}
	c.HTTP.Port = 8080
	c.Redis.Prefix = "contestd"

	require.NoError(t, config.Load(file, &c))

	require.Equal(t, int32(8080), c.HTTP.Port, "struct value survives as default")
	require.Equal(t, "db:5432", c.Postgres.Addr, "file value applies")
	require.Equal(t, "staging", c.Redis.Prefix, "environment overrides the default")
}

func TestLoad_MissingFile(t *testing.T) {
	var c testConfig
	require.Error(t, config.Load(filepath.Join(t.TempDir(), "absent.yaml"), &c))
}
