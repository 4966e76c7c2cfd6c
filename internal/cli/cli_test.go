package cli

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/switchboard/internal/config"
	"github.com/aretw0/switchboard/internal/logging"
	"github.com/aretw0/switchboard/pkg/adapters/memory"
	"github.com/aretw0/switchboard/pkg/adapters/redis"
	"github.com/aretw0/switchboard/pkg/flow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	ini "gopkg.in/ini.v1"
)

const callbackFlow = `
entry: account
nodes:
  - name: account
    input: {min: 4, max: 8}
    validators:
      - {name: checksum, check: luhn}
  - name: done
rules:
  - {node: account, on: complete, execute: remember_account}
  - {node: account, on: complete, jump: done}
  - {node: done, on: complete, jump_after_eval: next_step}
`

func settings(t *testing.T, body string) *config.Settings {
	t.Helper()
	cfg, err := ini.Load([]byte(body))
	require.NoError(t, err)
	s, err := config.Parse(cfg)
	require.NoError(t, err)
	return s
}

func writeFlow(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "flow.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestNewTrailStore_Memory(t *testing.T) {
	store, closer, err := NewTrailStore(context.Background(), settings(t, ""))
	require.NoError(t, err)
	defer closer.Close()
	assert.IsType(t, &memory.Store{}, store)
}

func TestNewTrailStore_Redis(t *testing.T) {
	mr := miniredis.RunT(t)

	s := settings(t, fmt.Sprintf("[trail]\nbackend = redis\nredis_addr = %s\nredis_prefix = test:\n", mr.Addr()))
	store, closer, err := NewTrailStore(context.Background(), s)
	require.NoError(t, err)
	defer closer.Close()
	assert.IsType(t, &redis.Store{}, store)
}

func TestNewTrailStore_RedisUnavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	s := settings(t, fmt.Sprintf("[trail]\nbackend = redis\nredis_addr = %s\n", addr))
	_, _, err := NewTrailStore(context.Background(), s)
	assert.ErrorContains(t, err, "trail backend unavailable")
}

func TestStubRegistry(t *testing.T) {
	def, err := flow.Parse(strings.NewReader(callbackFlow))
	require.NoError(t, err)

	reg := StubRegistry(def, logging.NewNop())
	actions, routers, checks := reg.Names()
	assert.Equal(t, []string{"remember_account"}, actions)
	assert.Equal(t, []string{"next_step"}, routers)
	assert.Equal(t, []string{"luhn"}, checks)

	_, err = reg.Router("next_step")
	assert.NoError(t, err)
}

func TestCreateEngine(t *testing.T) {
	eng, err := CreateEngine(writeFlow(t, callbackFlow), logging.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "account", eng.Definition().Entry)

	_, err = CreateEngine(writeFlow(t, "entry: menu\nnodes: [{name: other}]\n"), logging.NewNop())
	assert.ErrorIs(t, err, flow.ErrInvalidFlow)
}

func TestServe_StopsOnCancel(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Serve(ctx, addr, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTeapot)
		}), logging.NewNop())
	}()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr)
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusTeapot
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(ShutdownTimeout + time.Second):
		t.Fatal("server did not stop")
	}
}
