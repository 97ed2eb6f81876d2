package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/enrich-cli/internal/config"
)

// getFreePort returns a free TCP port on localhost.
func getFreePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	_ = l.Close()
	return port
}

func TestBuildServer_Lifecycle(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	port := getFreePort(t)
	srv, apiSrv := buildServer(ctx, stubEnv(nil), config.ServerConfig{UploadRatePerMinute: 60}, port)
	assert.Equal(t, fmt.Sprintf(":%d", port), srv.Addr)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	var resp *http.Response
	var err error
	for i := 0; i < 50; i++ {
		resp, err = http.Get(fmt.Sprintf("http://127.0.0.1:%d/health", port))
		if err == nil {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	require.NoError(t, err, "server did not become ready")

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	_ = resp.Body.Close()
	assert.Equal(t, "ok", body["status"])

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer shutdownCancel()
	require.NoError(t, srv.Shutdown(shutdownCtx))
	apiSrv.Wait()
	assert.NoError(t, <-errCh)
}

func TestPrintConfig_RedactsKeys(t *testing.T) {
	c := &config.Config{
		SerpAPI: config.SerpAPIConfig{URL: "https://serpapi.com/search.json", Key: "serp-secret-key"},
		Google:  config.GoogleConfig{Key: "g00gle-key"},
		Server:  config.ServerConfig{Port: 8000},
	}

	var buf bytes.Buffer
	require.NoError(t, printConfig(&buf, c))

	out := buf.String()
	assert.NotContains(t, out, "serp-secret-key")
	assert.NotContains(t, out, "g00gle-key")
	assert.Contains(t, out, "https://serpapi.com/search.json")

	var decoded config.Config
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "se***********ey", decoded.SerpAPI.Key)
	assert.Equal(t, 8000, decoded.Server.Port)
	assert.Equal(t, "serp-secret-key", c.SerpAPI.Key)
}
