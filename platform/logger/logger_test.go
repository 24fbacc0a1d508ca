package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMask(t *testing.T) {
	assert.Equal(t, "******789", Mask("123456789"))
	assert.Equal(t, "***", Mask("abc"))
	assert.Equal(t, "", Mask(""))
	assert.Equal(t, "**ÖÜÄ", Mask("12ÖÜÄ"))
	assert.Equal(t, "***", Mask("ſſ1"))
	assert.True(t, utf8.ValidString(Mask("1234567ü")))
}

func TestWithContextAddsRequestID(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "production")

	ctx := context.WithValue(context.Background(), RequestIDKey, "req-42")
	log.WithContext(ctx).Info("hello")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "req-42", entry["request_id"])
}

func TestRegistryCallLogsErrorsAtErrorLevel(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "production")

	log.RegistryCall("rest", "EE", 503, 120*time.Millisecond, errors.New("upstream status 503"))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "ERROR", entry["level"])
	assert.Equal(t, "rest", entry["binding"])
	assert.Equal(t, "upstream status 503", entry["error"])
}
