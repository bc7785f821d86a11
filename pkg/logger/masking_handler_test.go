package logger

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(NewMaskingHandler(slog.NewJSONHandler(buf, nil)))
}

func TestMaskingHandlerRedactsSecrets(t *testing.T) {
	var buf bytes.Buffer
	log := newTestLogger(&buf)

	log.Info("config", slog.String("token", "123:abc"), slog.String("API_KEY", "k"), slog.Int("port", 8080))

	out := buf.String()
	assert.NotContains(t, out, "123:abc")
	assert.Contains(t, out, `"token":"***"`)
	assert.Contains(t, out, `"API_KEY":"***"`)
	assert.Contains(t, out, `"port":8080`)
}

func TestMaskingHandlerKeepsRequisiteTail(t *testing.T) {
	var buf bytes.Buffer
	log := newTestLogger(&buf)

	log.Info("deal", slog.String("requisite", "4276123456789012"), slog.String("address", "bc1"))

	out := buf.String()
	assert.Contains(t, out, `"requisite":"***9012"`)
	assert.Contains(t, out, `"address":"***"`)
}

func TestMaskingHandlerMasksBoundAndGroupedAttrs(t *testing.T) {
	var buf bytes.Buffer
	log := newTestLogger(&buf).With(slog.String("password", "hunter2"))

	log.Info("withdraw", slog.Group("tx", slog.String("address", "bc1qxyzw8765")))

	out := buf.String()
	require.NotContains(t, out, "hunter2")
	assert.Contains(t, out, `"tx":{"address":"***8765"}`)
}
