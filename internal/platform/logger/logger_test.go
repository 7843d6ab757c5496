package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Run("json handler honours level", func(t *testing.T) {
		var buf bytes.Buffer
		log := New(Options{Enabled: true, Level: "warn", Format: "json", Output: &buf})

		log.Info("dropped")
		log.Warn("kept", "persona", "MEMBER")

		var rec map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
		assert.Equal(t, "kept", rec["msg"])
		assert.Equal(t, "MEMBER", rec["persona"])
	})

	t.Run("disabled logger writes nothing", func(t *testing.T) {
		var buf bytes.Buffer
		log := New(Options{Enabled: false, Output: &buf})
		log.Error("nothing")
		assert.Zero(t, buf.Len())
	})
}
