package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 5000, cfg.Server.Port)
	assert.Equal(t, "sid", cfg.Session.CookieName)
	assert.Equal(t, 24*time.Hour, cfg.Session.TTL)
	assert.Equal(t, "orders", cfg.MongoDB.Collection)
	assert.Equal(t, "audit_logs", cfg.MongoDB.AuditCollection)
	assert.False(t, cfg.Kafka.Enabled)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 8081
  diagnostics: true
session:
  ttl: 2h
mongodb:
  uri: mongodb://mongo:27017
  database: shop
  collection: shop_orders
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8081, cfg.Server.Port)
	assert.True(t, cfg.Server.Diagnostics)
	assert.Equal(t, 2*time.Hour, cfg.Session.TTL)
	assert.Equal(t, "shop_orders", cfg.MongoDB.Collection)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 8081\n")
	t.Setenv("ORDERSHOP_SERVER_PORT", "9090")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	base := func() Config {
		return Config{
			Server:  ServerConfig{Port: 5000},
			Session: SessionConfig{CookieName: "sid"},
			Redis:   RedisConfig{Addr: "localhost:6379"},
			MongoDB: MongoDBConfig{URI: "mongodb://localhost", Database: "iftx", Collection: "orders"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "bad port", mutate: func(c *Config) { c.Server.Port = 0 }, wantErr: true},
		{name: "no mongo uri", mutate: func(c *Config) { c.MongoDB.URI = "" }, wantErr: true},
		{name: "no redis", mutate: func(c *Config) { c.Redis.Addr = "" }, wantErr: true},
		{name: "kafka without brokers", mutate: func(c *Config) {
			c.Kafka = KafkaConfig{Enabled: true, Topic: "t"}
		}, wantErr: true},
		{name: "etcd without endpoints", mutate: func(c *Config) { c.Etcd.Enabled = true }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestAddressAndDSN(t *testing.T) {
	assert.Equal(t, "0.0.0.0:5000", ServerConfig{Host: "0.0.0.0", Port: 5000}.Address())

	my := MySQLConfig{Host: "db", Port: 3306, Username: "u", Password: "p", Database: "iftx"}
	assert.Equal(t, "u:p@tcp(db:3306)/iftx?charset=utf8mb4&parseTime=True&loc=Local", my.DSN())
}
