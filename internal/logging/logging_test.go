package logging_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/railwayapp/launchpad/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger, sugar, err := logging.New(&buf, logging.Options{Level: "info", Format: "json"})
	require.NoError(t, err)

	sugar.Debugw("hidden")
	sugar.Infow("step finished", "step", "directories")
	require.NoError(t, logger.Sync())

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "step finished", entry["msg"])
	assert.Equal(t, "directories", entry["step"])
	assert.Equal(t, "info", entry["level"])
}

func TestNew_Console(t *testing.T) {
	var buf bytes.Buffer
	_, sugar, err := logging.New(&buf, logging.Options{Level: "DEBUG"})
	require.NoError(t, err)

	sugar.Debugw("running command", "command", "migrate")
	assert.Contains(t, buf.String(), "DEBUG")
	assert.Contains(t, buf.String(), "running command")
}

func TestNew_Invalid(t *testing.T) {
	_, _, err := logging.New(&bytes.Buffer{}, logging.Options{Level: "loud"})
	assert.Error(t, err)

	_, _, err = logging.New(&bytes.Buffer{}, logging.Options{Format: "xml"})
	assert.Error(t, err)
}
