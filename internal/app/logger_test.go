package app

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoggerJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, &Config{AppEnv: "production", LogFormat: "json"})

	logger.Debug("hidden")
	logger.Info("visible")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "visible", line["msg"])
	assert.Equal(t, "backoffice", line["service"])
	assert.Equal(t, "production", line["env"])
}

func TestNewLoggerTextDefaultsToDebug(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, nil)

	logger.Debug("debug line")
	assert.Contains(t, buf.String(), "debug line")
	assert.Contains(t, buf.String(), "env=development")
}
