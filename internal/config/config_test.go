package config

import (
	"testing"

	"github.com/flexprice/billingcore/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := GetDefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, types.ModeLocal, cfg.Deployment.Mode)
	assert.Equal(t, "user=billingcore password=billingcore dbname=billingcore host=localhost port=5432 sslmode=disable", cfg.Postgres.GetDSN())
}

func TestValidateRequiresTaxServiceURLWhenEnabled(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.TaxService.Enabled = true
	cfg.TaxService.BaseURL = ""
	assert.Error(t, cfg.Validate())

	cfg.TaxService.BaseURL = "http://tax.local"
	assert.NoError(t, cfg.Validate())
}

func TestNewConfigReadsEnvironment(t *testing.T) {
	t.Setenv("BILLINGCORE_LOGGING_LEVEL", "warn")
	t.Setenv("BILLINGCORE_WORKER_CONCURRENCY", "8")
	t.Setenv("BILLINGCORE_BILLING_DEFAULT_TIMEZONE", "Europe/Berlin")

	cfg, err := NewConfig()
	require.NoError(t, err)
	assert.Equal(t, types.LogLevelWarn, cfg.Logging.Level)
	assert.Equal(t, 8, cfg.Worker.Concurrency)

	loc, err := cfg.Billing.Location()
	require.NoError(t, err)
	assert.Equal(t, "Europe/Berlin", loc.String())
}
