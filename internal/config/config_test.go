package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewManager_Defaults(t *testing.T) {
	manager, err := NewManager()
	require.NoError(t, err)

	cfg := manager.GetConfig()
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "labseries", cfg.Database.Database)
	assert.Equal(t, "sqlite", cfg.Audit.Backend)
	assert.Equal(t, 30, cfg.Reconcile.ExpectedCadenceDays)
	assert.Equal(t, 90, cfg.Reconcile.GapThresholdDays)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestValidate_DefaultsAreValid(t *testing.T) {
	manager, err := NewManager()
	require.NoError(t, err)

	assert.NoError(t, manager.Validate())
}

func TestValidate_RejectsBadPort(t *testing.T) {
	manager, err := NewManager()
	require.NoError(t, err)

	manager.config.Server.Port = -1

	assert.Error(t, manager.Validate())
}

func TestValidate_RejectsBadAuditBackend(t *testing.T) {
	manager, err := NewManager()
	require.NoError(t, err)

	manager.config.Audit.Backend = "cassandra"

	assert.Error(t, manager.Validate())
}

func TestValidate_RejectsNonPositiveCadence(t *testing.T) {
	manager, err := NewManager()
	require.NoError(t, err)

	manager.config.Reconcile.ExpectedCadenceDays = 0

	assert.Error(t, manager.Validate())
}

func TestValidate_RejectsBadLogLevel(t *testing.T) {
	manager, err := NewManager()
	require.NoError(t, err)

	manager.config.Logging.Level = "verbose"

	assert.Error(t, manager.Validate())
}
