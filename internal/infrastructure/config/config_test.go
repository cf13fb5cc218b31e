package config

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validProductionConfig() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	cfg.App.Env = "production"
	cfg.JWT.Secret = strings.Repeat("s", 32)
	cfg.Database.Password = "secret"
	cfg.Database.SSLMode = "require"
	cfg.Noest.APIToken = "token"
	cfg.Noest.UserGUID = "guid"
	cfg.Admin.PasswordHash = "$2a$10$stubbedbcrypthashvalueforconfigtest"
	return cfg
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid production config",
			mutate: func(c *Config) {},
		},
		{
			name:    "idle conns above open conns",
			mutate:  func(c *Config) { c.Database.MaxIdleConns = 100 },
			wantErr: "max_idle_conns",
		},
		{
			name:    "production requires jwt secret",
			mutate:  func(c *Config) { c.JWT.Secret = "" },
			wantErr: "jwt.secret",
		},
		{
			name:    "production rejects short jwt secret",
			mutate:  func(c *Config) { c.JWT.Secret = "short" },
			wantErr: "32 characters",
		},
		{
			name:    "production requires database password",
			mutate:  func(c *Config) { c.Database.Password = "" },
			wantErr: "database.password",
		},
		{
			name:    "production rejects sslmode disable",
			mutate:  func(c *Config) { c.Database.SSLMode = "disable" },
			wantErr: "sslmode",
		},
		{
			name:    "production requires carrier token",
			mutate:  func(c *Config) { c.Noest.APIToken = "" },
			wantErr: "noest.api_token",
		},
		{
			name:    "production requires carrier guid",
			mutate:  func(c *Config) { c.Noest.UserGUID = "" },
			wantErr: "noest.user_guid",
		},
		{
			name:    "production requires admin password hash",
			mutate:  func(c *Config) { c.Admin.PasswordHash = "" },
			wantErr: "admin.password_hash",
		},
		{
			name:    "production rejects wildcard cors",
			mutate:  func(c *Config) { c.HTTP.CORSAllowOrigins = []string{"*"} },
			wantErr: "cors_allow_origins",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validProductionConfig()
			tt.mutate(cfg)
			err := cfg.validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	applyDefaults(cfg)

	assert.Equal(t, "kotek-backend", cfg.App.Name)
	assert.Equal(t, "development", cfg.App.Env)
	assert.Equal(t, "8080", cfg.App.Port)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, 25, cfg.Database.MaxOpenConns)
	assert.Equal(t, 6379, cfg.Redis.Port)
	assert.Equal(t, 30, cfg.Noest.TimeoutSeconds)
	assert.NotZero(t, cfg.Noest.FeeCacheTTL)
	assert.Equal(t, "admin", cfg.Admin.Username)
	assert.Equal(t, int64(4<<20), cfg.HTTP.MaxBodySize)
	assert.Equal(t, 100, cfg.HTTP.RateLimitRequests)
}

func TestLoadRedisToggle(t *testing.T) {
	t.Run("redis is enabled by default", func(t *testing.T) {
		cfg, err := Load()
		require.NoError(t, err)
		assert.True(t, cfg.Redis.Enabled)
	})

	t.Run("redis can be switched off through the environment", func(t *testing.T) {
		t.Setenv("KOTEK_REDIS_ENABLED", "false")
		cfg, err := Load()
		require.NoError(t, err)
		assert.False(t, cfg.Redis.Enabled)
	})
}

func TestDatabaseDSN(t *testing.T) {
	d := &DatabaseConfig{
		Host:     "db.internal",
		Port:     5433,
		User:     "kotek",
		Password: "p@ss/word",
		DBName:   "kotek",
		SSLMode:  "require",
	}

	dsn := d.DSN()

	assert.Contains(t, dsn, "postgres://")
	assert.Contains(t, dsn, "db.internal:5433")
	assert.Contains(t, dsn, "sslmode=require")
	// special characters must be escaped, not embedded raw
	assert.NotContains(t, dsn, "p@ss/word")
}
