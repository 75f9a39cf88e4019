package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestValidate_Defaults(t *testing.T) {
	var c Config
	c.Kit.SyncSeconds = -3
	validate(&c)

	assert.Equal(t, ":8080", c.Server.Addr)
	assert.Equal(t, 5432, c.Postgres.Port)
	assert.Equal(t, "disable", c.Postgres.SSLMode)
	assert.Equal(t, "campaignkit_events", c.Listener.Channel)
	assert.Equal(t, 5*time.Second, c.Backoff())
	assert.Equal(t, "configs/kit.yaml", c.Kit.SettingsFile)
	assert.Zero(t, c.SyncInterval())
	assert.Equal(t, 50, c.Kit.NotificationsMax)
}

func TestDSN(t *testing.T) {
	var c Config
	c.Postgres.User = "ck"
	c.Postgres.Password = "pw"
	c.Postgres.Host = "db"
	c.Postgres.DBName = "kit"
	validate(&c)

	assert.Equal(t, "postgres://ck:pw@db:5432/kit?sslmode=disable", c.DSN())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("APP_DEVICE_PLAY_SERVICES", "missing")
	t.Setenv("APP_DEVICE_API_LEVEL", "19")
	c := Load()
	assert.Equal(t, "missing", c.Device.PlayServices)
	assert.Equal(t, 19, c.Device.APILevel)
	assert.True(t, c.Device.BluetoothLE)
}
