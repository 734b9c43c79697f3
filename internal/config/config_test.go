package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	req := require.New(t)
	t.Setenv("NOTIFY_BACKEND", "")
	t.Setenv("NOTIFY_REPLAY", "")
	t.Setenv("CHAT_API_URL", "http://localhost:9000/")

	cfg, err := Load()
	req.NoError(err)
	req.Equal(BackendRedis, cfg.Notification.Backend)
	req.Equal(int64(-1), cfg.Notification.Replay)
	req.Equal("coalesce", cfg.Notification.Policy)
	req.Equal("http://localhost:9000", cfg.Client.APIURL)
	req.Equal(2*time.Second, cfg.Notification.BlockTimeout())
}

func TestLoad_InvalidBackend(t *testing.T) {
	t.Setenv("NOTIFY_BACKEND", "kafka")

	_, err := Load()
	require.Error(t, err)
}

func TestLoad_InvalidReplay(t *testing.T) {
	t.Setenv("NOTIFY_REPLAY", "latest")

	_, err := Load()
	require.Error(t, err)
}

func TestGetEnvAsInt_FallsBackOnGarbage(t *testing.T) {
	t.Setenv("SOME_INT", "nope")
	require.Equal(t, 7, getEnvAsInt("SOME_INT", 7))
}
