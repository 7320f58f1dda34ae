package logging

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNew(t *testing.T) {
	cases := []struct {
		level, format string
		enabled       zap.AtomicLevel
	}{
		{"debug", "text", zap.NewAtomicLevelAt(zap.DebugLevel)},
		{"warn", "json", zap.NewAtomicLevelAt(zap.WarnLevel)},
		{"bogus", "json", zap.NewAtomicLevelAt(zap.InfoLevel)},
	}

	for _, tc := range cases {
		t.Run(tc.level+"/"+tc.format, func(t *testing.T) {
			logger, err := New(tc.level, tc.format)
			require.NoError(t, err)
			require.NotNil(t, logger)
			require.Equal(t, tc.enabled.Level(), logger.Level())
			require.Same(t, logger, zap.L())
		})
	}
}
