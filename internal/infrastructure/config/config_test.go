package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testEnvVars = []string{
	"INTACCT_APP_NAME",
	"INTACCT_APP_ENV",
	"INTACCT_APP_INPUT_DIR",
	"INTACCT_GATEWAY_URL",
	"INTACCT_GATEWAY_COMPANY_ID",
	"INTACCT_GATEWAY_SENDER_ID",
	"INTACCT_GATEWAY_SENDER_PASSWORD",
	"INTACCT_GATEWAY_USER_ID",
	"INTACCT_GATEWAY_USER_PASSWORD",
	"INTACCT_GATEWAY_LOCATION_ID",
	"INTACCT_GATEWAY_USE_LOCATIONS",
	"INTACCT_TRANSPORT_TIMEOUT",
	"INTACCT_TRANSPORT_MAX_ATTEMPTS",
	"INTACCT_TRANSPORT_BACKOFF_BASE",
	"INTACCT_SNAPSHOT_ENABLED",
	"INTACCT_SNAPSHOT_MAX_AGE",
	"INTACCT_BATCH_MAX_SIZE",
	"INTACCT_LOG_LEVEL",
	"INTACCT_LOG_FORMAT",
}

func withCleanEnv(t *testing.T) {
	t.Helper()
	for _, k := range testEnvVars {
		if v, ok := os.LookupEnv(k); ok {
			t.Setenv(k, v)
		}
		os.Unsetenv(k)
	}
}

// setRequiredCredentials sets the five gateway settings validation insists on.
func setRequiredCredentials(t *testing.T) {
	t.Helper()
	t.Setenv("INTACCT_GATEWAY_COMPANY_ID", "ACME-CO")
	t.Setenv("INTACCT_GATEWAY_SENDER_ID", "sender")
	t.Setenv("INTACCT_GATEWAY_SENDER_PASSWORD", "sender-pass")
	t.Setenv("INTACCT_GATEWAY_USER_ID", "xml_user")
	t.Setenv("INTACCT_GATEWAY_USER_PASSWORD", "user-pass")
}

func TestLoad(t *testing.T) {
	t.Run("applies defaults", func(t *testing.T) {
		withCleanEnv(t)
		setRequiredCredentials(t)

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "intacct-sync", cfg.App.Name)
		assert.Equal(t, "development", cfg.App.Env)
		assert.Equal(t, "https://api.intacct.com/ia/xml/xmlgw.phtml", cfg.Gateway.URL)
		assert.Equal(t, "30s", cfg.Transport.Timeout.String())
		assert.Equal(t, 5, cfg.Transport.MaxAttempts)
		assert.Equal(t, "1s", cfg.Transport.BackoffBase.String())
		assert.Equal(t, "intacct-refdata.json", cfg.Snapshot.Path)
		assert.Equal(t, "1h0m0s", cfg.Snapshot.MaxAge.String())
		assert.Equal(t, 50, cfg.Batch.MaxSize)
		assert.Equal(t, "info", cfg.Log.Level)
		assert.Equal(t, "console", cfg.Log.Format)
		assert.Equal(t, "stdout", cfg.Log.Output)
	})

	t.Run("reads environment overrides", func(t *testing.T) {
		withCleanEnv(t)
		setRequiredCredentials(t)
		t.Setenv("INTACCT_GATEWAY_URL", "https://sandbox.intacct.com/ia/xml/xmlgw.phtml")
		t.Setenv("INTACCT_GATEWAY_LOCATION_ID", "SUB-A")
		t.Setenv("INTACCT_GATEWAY_USE_LOCATIONS", "true")
		t.Setenv("INTACCT_TRANSPORT_MAX_ATTEMPTS", "3")
		t.Setenv("INTACCT_TRANSPORT_TIMEOUT", "10s")
		t.Setenv("INTACCT_BATCH_MAX_SIZE", "25")
		t.Setenv("INTACCT_LOG_LEVEL", "debug")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "https://sandbox.intacct.com/ia/xml/xmlgw.phtml", cfg.Gateway.URL)
		assert.Equal(t, "ACME-CO", cfg.Gateway.CompanyID)
		assert.Equal(t, "SUB-A", cfg.Gateway.LocationID)
		assert.True(t, cfg.Gateway.UseLocations)
		assert.Equal(t, 3, cfg.Transport.MaxAttempts)
		assert.Equal(t, "10s", cfg.Transport.Timeout.String())
		assert.Equal(t, 25, cfg.Batch.MaxSize)
		assert.Equal(t, "debug", cfg.Log.Level)
	})

	t.Run("rejects missing credentials", func(t *testing.T) {
		withCleanEnv(t)
		t.Setenv("INTACCT_GATEWAY_COMPANY_ID", "ACME-CO")
		t.Setenv("INTACCT_GATEWAY_SENDER_ID", "sender")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "gateway.sender_password")
		assert.Contains(t, err.Error(), "gateway.user_id")
		assert.Contains(t, err.Error(), "gateway.user_password")
		assert.NotContains(t, err.Error(), "gateway.company_id")
	})

	t.Run("rejects non-positive batch size", func(t *testing.T) {
		withCleanEnv(t)
		setRequiredCredentials(t)
		t.Setenv("INTACCT_BATCH_MAX_SIZE", "-1")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "batch.max_size")
	})

	t.Run("rejects non-positive retry attempts", func(t *testing.T) {
		withCleanEnv(t)
		setRequiredCredentials(t)
		t.Setenv("INTACCT_TRANSPORT_MAX_ATTEMPTS", "-1")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "transport.max_attempts")
	})
}
