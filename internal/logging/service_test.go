package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithHeadAddsIndex(t *testing.T) {
	var buf bytes.Buffer
	base := zerolog.New(&buf).With().Str("service", "scheduler").Logger()

	l := WithHead(base, 2)
	l.Info().Msg("phase started")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "scheduler", entry["service"])
	assert.EqualValues(t, 2, entry["head"])
	assert.Equal(t, "phase started", entry["message"])
}
