package sender

import (
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ondo/internal/config"
)

func TestNewSender(t *testing.T) {
	mr := miniredis.RunT(t)

	tests := []struct {
		senderType string
		want       interface{}
	}{
		{"", &FileSender{}},
		{"file", &FileSender{}},
		{"FILE", &FileSender{}},
		{"redis", &RedisSender{}},
	}
	for _, tt := range tests {
		t.Run("type="+tt.senderType, func(t *testing.T) {
			cfg := config.DefaultConfig()
			cfg.SenderType = tt.senderType
			cfg.File.FilePath = filepath.Join(t.TempDir(), "snapshots.jsonl")
			cfg.Redis.Address = mr.Addr()

			s, err := NewSender(cfg)
			require.NoError(t, err)
			defer s.Close()
			assert.IsType(t, tt.want, s)
		})
	}
}

func TestNewSender_Unknown(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.SenderType = "kafkarest"

	_, err := NewSender(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown sender type")
}
