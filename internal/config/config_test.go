package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "PairChat", cfg.AppName)
	assert.Equal(t, "3000", cfg.Server.Port)
	assert.Equal(t, "/ws", cfg.Server.WebSocketPath)

	assert.Equal(t, "GG", cfg.Chat.UserA.ID)
	assert.Equal(t, "MM", cfg.Chat.UserB.ID)
	assert.Equal(t, 2*time.Minute, cfg.Chat.RecallWindow)
	assert.Equal(t, 30*time.Second, cfg.Chat.ReaperInterval)
	assert.Equal(t, 30*time.Second, cfg.Chat.PresenceStaleness)

	assert.Equal(t, int64(10), cfg.Storage.MaxImageSizeMB)
	assert.Equal(t, int64(100), cfg.Storage.MaxVideoSizeMB)
	assert.Equal(t, 256, cfg.WebSocket.SendBufferSize)
}

func TestLoadConfigFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
SERVER:
  PORT: "8080"
CHAT:
  USER_A:
    ID: "alice"
    AVATAR: "/images/alice.png"
  RECALL_WINDOW: 90s
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "alice", cfg.Chat.UserA.ID)
	assert.Equal(t, 90*time.Second, cfg.Chat.RecallWindow)
	// 未覆盖的键保持默认值
	assert.Equal(t, "MM", cfg.Chat.UserB.ID)
	assert.Equal(t, 30*time.Second, cfg.Chat.ReaperInterval)
}
