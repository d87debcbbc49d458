package config

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func validConfig() *Config {
	return &Config{
		App: AppConfig{
			Name:        "stockledger",
			Environment: "test",
			LogLevel:    "info",
			LogFormat:   "json",
			StoreDriver: "postgres",
		},
		Database: DatabaseConfig{
			Host:           "localhost",
			Port:           "5432",
			Name:           "stockledger",
			Password:       "s3cret",
			SSLMode:        "require",
			MaxConnections: 10,
			MinConnections: 2,
		},
		Redis: RedisConfig{Host: "localhost", Port: "6379", PoolSize: 10},
		Asynq: AsynqConfig{Concurrency: 4},
		Ledger: LedgerConfig{
			MaxAttempts:      5,
			RetryBaseDelay:   10 * time.Millisecond,
			RetryMaxDelay:    200 * time.Millisecond,
			HistoryPageSize:  100,
			BatchConcurrency: 8,
			MaxBatchSize:     500,
		},
		Security: SecurityConfig{RateLimitRequests: 100, AllowedOrigins: []string{"https://shop.example.com"}},
		Server:   ServerConfig{Port: "8080"},
		Secrets:  SecretsConfig{Provider: "env"},
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", "test")

	cfg, err := Load(quietLogger())
	require.NoError(t, err)

	assert.Equal(t, "stockledger", cfg.App.Name)
	assert.Equal(t, "postgres", cfg.App.StoreDriver)
	assert.Equal(t, 5, cfg.Ledger.MaxAttempts)
	assert.Equal(t, 10*time.Millisecond, cfg.Ledger.RetryBaseDelay)
	assert.Equal(t, 100, cfg.Ledger.HistoryPageSize)
	assert.True(t, cfg.Ledger.LowStockAlerts)
	assert.Equal(t, map[string]int{"critical": 6, "default": 3, "low": 1}, cfg.Asynq.Queues)
	assert.Equal(t, "localhost:6379", cfg.Asynq.RedisAddr)
	assert.Equal(t, "0.0.0.0:8080", cfg.GetServerAddress())
	assert.True(t, cfg.Database.RunMigrations)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("APP_ENV", "staging")
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("LEDGER_MAX_ATTEMPTS", "3")
	t.Setenv("LEDGER_RETRY_BASE_DELAY", "5ms")
	t.Setenv("LEDGER_LOW_STOCK_ALERTS", "false")
	t.Setenv("ASYNQ_QUEUES", "critical:9, low:1")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com")
	t.Setenv("TRUSTED_PROXIES", "10.0.0.0/8, 192.0.2.7")
	t.Setenv("REDIS_HOST", "cache")
	t.Setenv("DB_MAX_CONNECTIONS", "not-a-number")

	cfg, err := Load(quietLogger())
	require.NoError(t, err)

	assert.Equal(t, "memory", cfg.App.StoreDriver)
	assert.Equal(t, 3, cfg.Ledger.MaxAttempts)
	assert.Equal(t, 5*time.Millisecond, cfg.Ledger.RetryBaseDelay)
	assert.False(t, cfg.Ledger.LowStockAlerts)
	assert.Equal(t, map[string]int{"critical": 9, "low": 1}, cfg.Asynq.Queues)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.Security.AllowedOrigins)
	assert.Equal(t, []string{"10.0.0.0/8", "192.0.2.7"}, cfg.Security.TrustedProxies)
	assert.Equal(t, "cache:6379", cfg.GetRedisAddress())
	assert.Equal(t, "cache:6379", cfg.Asynq.RedisAddr)
	assert.Equal(t, int32(25), cfg.Database.MaxConnections, "unparsable values fall back to the default")
}

func TestLoad_Invalid(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	t.Setenv("LEDGER_MAX_ATTEMPTS", "50")

	_, err := Load(quietLogger())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidConfig)
	assert.Contains(t, err.Error(), "MaxAttempts")
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "memory_outside_production", mutate: func(c *Config) { c.App.StoreDriver = "memory" }},
		{name: "unknown_driver", mutate: func(c *Config) { c.App.StoreDriver = "sqlite" }, wantErr: "StoreDriver"},
		{name: "bad_log_level", mutate: func(c *Config) { c.App.LogLevel = "verbose" }, wantErr: "LogLevel"},
		{name: "zero_attempts", mutate: func(c *Config) { c.Ledger.MaxAttempts = 0 }, wantErr: "MaxAttempts"},
		{name: "page_too_large", mutate: func(c *Config) { c.Ledger.HistoryPageSize = 5000 }, wantErr: "HistoryPageSize"},
		{
			name:    "pool_bounds_inverted",
			mutate:  func(c *Config) { c.Database.MinConnections = 20 },
			wantErr: "max connections",
		},
		{
			name:    "retry_delays_inverted",
			mutate:  func(c *Config) { c.Ledger.RetryMaxDelay = time.Millisecond },
			wantErr: "retry max delay",
		},
		{
			name:   "trusted_proxies",
			mutate: func(c *Config) { c.Security.TrustedProxies = []string{"10.0.0.0/8", "192.0.2.7", "2001:db8::/32"} },
		},
		{
			name:    "trusted_proxy_not_an_address",
			mutate:  func(c *Config) { c.Security.TrustedProxies = []string{"10.0.0.0/8", "lb.internal"} },
			wantErr: "TrustedProxies",
		},
		{
			name:    "aws_secrets_need_name",
			mutate:  func(c *Config) { c.Secrets.Provider = "aws" },
			wantErr: "Secrets.Name",
		},
		{
			name:   "production_valid",
			mutate: func(c *Config) { c.App.Environment = "production" },
		},
		{
			name: "production_memory_store",
			mutate: func(c *Config) {
				c.App.Environment = "production"
				c.App.StoreDriver = "memory"
			},
			wantErr: "memory store",
		},
		{
			name: "production_without_ssl",
			mutate: func(c *Config) {
				c.App.Environment = "production"
				c.Database.SSLMode = "disable"
			},
			wantErr: "SSL",
		},
		{
			name: "production_dev_password",
			mutate: func(c *Config) {
				c.App.Environment = "production"
				c.Database.Password = "stockledger_dev"
			},
			wantErr: "password",
		},
		{
			name: "production_wildcard_origin",
			mutate: func(c *Config) {
				c.App.Environment = "production"
				c.Security.AllowedOrigins = []string{"*"}
			},
			wantErr: "wildcard",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidConfig)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParseQueues(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  map[string]int
	}{
		{name: "standard", input: "critical:6,default:3,low:1", want: map[string]int{"critical": 6, "default": 3, "low": 1}},
		{name: "spaces", input: " critical : 2 , low:1", want: map[string]int{"critical": 2, "low": 1}},
		{name: "skips_malformed", input: "critical,low:x,default:4", want: map[string]int{"default": 4}},
		{name: "empty_falls_back", input: "", want: map[string]int{"default": 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseQueues(tt.input))
		})
	}
}

type fakeSecretsAPI struct {
	secret *string
	err    error
	calls  int
}

func (f *fakeSecretsAPI) GetSecretValue(_ context.Context, params *secretsmanager.GetSecretValueInput, _ ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &secretsmanager.GetSecretValueOutput{Name: params.SecretId, SecretString: f.secret}, nil
}

func TestApplySecrets(t *testing.T) {
	t.Run("overrides_credentials", func(t *testing.T) {
		api := &fakeSecretsAPI{secret: aws.String(`{"DB_PASSWORD":"from-aws","REDIS_PASSWORD":"redis-aws"}`)}
		manager := newAWSSecretsManager(api, "stockledger/prod", quietLogger())

		cfg := validConfig()
		require.NoError(t, cfg.applySecrets(context.Background(), manager))
		assert.Equal(t, "from-aws", cfg.Database.Password)
		assert.Equal(t, "redis-aws", cfg.Redis.Password)
		assert.Equal(t, "redis-aws", cfg.Asynq.RedisPassword)

		// second read is served from the cache
		v, err := manager.GetSecret(context.Background(), "DB_PASSWORD")
		require.NoError(t, err)
		assert.Equal(t, "from-aws", v)
		assert.Equal(t, 1, api.calls)
	})

	t.Run("missing_keys_leave_config_alone", func(t *testing.T) {
		api := &fakeSecretsAPI{secret: aws.String(`{"OTHER":"x"}`)}
		manager := newAWSSecretsManager(api, "stockledger/prod", quietLogger())

		cfg := validConfig()
		require.NoError(t, cfg.applySecrets(context.Background(), manager))
		assert.Equal(t, "s3cret", cfg.Database.Password)

		_, err := manager.GetSecret(context.Background(), "DB_PASSWORD")
		assert.Error(t, err)
	})

	t.Run("api_failure", func(t *testing.T) {
		api := &fakeSecretsAPI{err: errors.New("access denied")}
		manager := newAWSSecretsManager(api, "stockledger/prod", quietLogger())

		err := validConfig().applySecrets(context.Background(), manager)
		assert.ErrorContains(t, err, "access denied")
	})

	t.Run("malformed_secret", func(t *testing.T) {
		api := &fakeSecretsAPI{secret: aws.String("not json")}
		manager := newAWSSecretsManager(api, "stockledger/prod", quietLogger())

		err := validConfig().applySecrets(context.Background(), manager)
		assert.ErrorContains(t, err, "failed to parse secret JSON")
	})

	t.Run("refresh_refetches", func(t *testing.T) {
		api := &fakeSecretsAPI{secret: aws.String(`{"DB_PASSWORD":"a"}`)}
		manager := newAWSSecretsManager(api, "stockledger/prod", quietLogger())

		_, err := manager.GetSecret(context.Background(), "DB_PASSWORD")
		require.NoError(t, err)
		require.NoError(t, manager.RefreshSecrets(context.Background()))
		assert.Equal(t, 2, api.calls)
	})
}

func TestEnvSecretsManager(t *testing.T) {
	t.Setenv("DB_PASSWORD", "env-pass")
	manager := NewEnvSecretsManager()
	cfg := validConfig()

	require.NoError(t, cfg.applySecrets(context.Background(), manager))
	assert.Equal(t, "env-pass", cfg.Database.Password)

	_, err := manager.GetSecret(context.Background(), "STOCKLEDGER_UNSET_KEY")
	assert.Error(t, err)
}
