package mylogger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerWritesRenamedKeys(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(LevelInfo, &buf)

	log.Action("walk_started").Info("walk started", "walk_id", "w-1")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "walk started", line["message"])
	assert.Equal(t, "walk_started", line["action"])
	assert.Equal(t, "w-1", line["walk_id"])
	assert.NotEmpty(t, line["timestamp"])
	assert.NotEmpty(t, line["run_id"])
}

func TestLoggerLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("warn", &buf)

	log.Info("hidden")
	assert.Zero(t, buf.Len())

	log.Error("boom", errors.New("bad"))
	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	group, ok := line["error"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "bad", group["msg"])
	assert.NotEmpty(t, group["stack"])
}
