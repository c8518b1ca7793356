package sysutil

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestParseLogLevel(t *testing.T) {
	for in, want := range map[string]zerolog.Level{
		"trace":     zerolog.TraceLevel,
		"debug":     zerolog.DebugLevel,
		"  DeBuG  ": zerolog.DebugLevel,
		"info":      zerolog.InfoLevel,
		"warn":      zerolog.WarnLevel,
		"Warning":   zerolog.WarnLevel,
		"error":     zerolog.ErrorLevel,
		"fatal":     zerolog.FatalLevel,
		"panic":     zerolog.PanicLevel,
		"":          zerolog.InfoLevel,
		"verbose":   zerolog.InfoLevel,
		"disabled":  zerolog.InfoLevel, // LOG_LEVEL cannot silence the server
	} {
		assert.Equal(t, want, ParseLogLevel(in), "%q", in)
	}
}

func TestSetLogLevel_AppliesGlobally(t *testing.T) {
	orig := zerolog.GlobalLevel()
	t.Cleanup(func() { zerolog.SetGlobalLevel(orig) })

	assert.Equal(t, zerolog.ErrorLevel, SetLogLevel("ERROR"))
	assert.Equal(t, zerolog.ErrorLevel, zerolog.GlobalLevel())

	SetLogLevel("nonsense")
	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())
}

func TestIsTruthy(t *testing.T) {
	for _, v := range []string{"1", "true", "TRUE", " yes ", "Y", "on"} {
		assert.True(t, IsTruthy(v), "%q", v)
	}
	for _, v := range []string{"", "0", "false", "no", "off", "  ", "enabled"} {
		assert.False(t, IsTruthy(v), "%q", v)
	}
}

func TestFirstNonEmpty(t *testing.T) {
	assert.Equal(t, "", FirstNonEmpty())
	assert.Equal(t, "", FirstNonEmpty(" ", "\t"))
	// DATABASE_URL wins over POSTGRES_DSN when both are set.
	assert.Equal(t, "postgres://primary", FirstNonEmpty("postgres://primary", "postgres://fallback"))
	assert.Equal(t, "postgres://fallback", FirstNonEmpty("", "postgres://fallback"))
	// The chosen value is returned untrimmed.
	assert.Equal(t, " svc ", FirstNonEmpty("  ", " svc ", "default"))
}
