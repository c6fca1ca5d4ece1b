package app

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/framekit/framekit/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_InvalidConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Ingest.Concurrency = 0

	_, err := New(cfg)
	assert.Error(t, err)
}

func TestApp_StartStop(t *testing.T) {
	cfg := testConfig(t)
	cfg.Mode = config.ModeServe
	cfg.HTTP.Addr = "127.0.0.1:0"

	a, err := New(cfg)
	require.NoError(t, err)
	assert.Empty(t, a.Addr())
	assert.Equal(t, "no frames held", a.heldFrames())

	require.NoError(t, a.Start(context.Background()))
	assert.Error(t, a.Start(context.Background()), "second start")

	base := "http://" + a.Addr()

	resp, err := http.Get(base + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Post(base+"/v1/frames", "application/json",
		strings.NewReader(`{"object":"players.csv","kinds":"1,4,3,2"}`))
	require.NoError(t, err)
	var summary struct {
		ID      string `json:"id"`
		NumRows int    `json:"num_rows"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&summary))
	resp.Body.Close()
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, 3, summary.NumRows)
	assert.Equal(t, "1 frames held", a.heldFrames())

	require.NoError(t, a.Stop(context.Background()))
	require.NoError(t, a.Stop(context.Background()), "second stop is a no-op")

	_, err = http.Get(base + "/health")
	assert.Error(t, err)
}

func TestApp_WaitForShutdown(t *testing.T) {
	cfg := testConfig(t)
	cfg.HTTP.Addr = "127.0.0.1:0"

	a, err := New(cfg)
	require.NoError(t, err)
	require.NoError(t, a.Start(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, a.WaitForShutdown(ctx))

	_, err = http.Get("http://" + a.Addr() + "/health")
	assert.Error(t, err)
}
