package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name   string
		level  string
		format string
		output string
		err    string
	}{
		{"debug console stderr", "debug", "console", "stderr", ""},
		{"info json stdout", "info", "json", "stdout", ""},
		{"defaults", "", "", "", ""},
		{"bad level", "loud", "console", "stderr", `unknown log level "loud"`},
		{"bad format", "info", "xml", "stderr", `unknown log format "xml"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log, err := New(tt.level, tt.format, tt.output)
			if tt.err != "" {
				assert.EqualError(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, log.Zap())
		})
	}
}

func TestParseLevel(t *testing.T) {
	l, err := ParseLevel("WARNING")
	require.NoError(t, err)
	assert.Equal(t, zapcore.WarnLevel, l)
}

func TestLogToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dynsql.log")
	log, err := New("info", "json", path)
	require.NoError(t, err)

	log.Named("parse").With("statements", 2).Infow("split script")
	log.Debugw("not written")
	require.NoError(t, log.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)
	assert.Contains(t, out, `"msg":"split script"`)
	assert.Contains(t, out, `"logger":"parse"`)
	assert.Contains(t, out, `"statements":2`)
	assert.False(t, strings.Contains(out, "not written"))
}

func TestNop(t *testing.T) {
	log := Nop()
	log.Infow("dropped")
	assert.NoError(t, log.Sync())
}
