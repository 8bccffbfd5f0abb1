package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"github.com/CloudNativeWorks/lynx-node/internal/cmdrunner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConf(t *testing.T) {
	data := []byte(`# lynx node
rpcuser=alice
rpcpassword=s3cr#t
rpcport=9332
rpcbind=10.0.0.5
datadir=chain
disablestaking=1
listen

[test]
rpcport=19332
`)
	conf, err := ParseConf(data, "/var/lib/lynx")
	require.NoError(t, err)
	assert.Equal(t, "alice", conf.User)
	assert.Equal(t, "s3cr#t", conf.Password)
	assert.Equal(t, "9332", conf.Port)
	assert.Equal(t, "10.0.0.5", conf.Bind)
	assert.Equal(t, "/var/lib/lynx/chain", conf.DataDir)
}

func TestLoadConf_Missing(t *testing.T) {
	conf, err := LoadConf(filepath.Join(t.TempDir(), "lynx.conf"))
	require.NoError(t, err)
	assert.Equal(t, NodeConf{}, conf)
}

func TestParseInitialBlockDownload(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    bool
		wantErr bool
	}{
		{"syncing", `{"chain":"main","initialblockdownload": true}`, true, false},
		{"synced", `{"initialblockdownload":false,"blocks":10}`, false, false},
		{"spaced", "{\"initialblockdownload\"\n :\tfalse}", false, false},
		{"missing", `{"blocks":10}`, false, true},
		{"not boolean", `{"initialblockdownload":"no"}`, false, true},
		{"garbage", `error: couldn't connect to server`, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseInitialBlockDownload([]byte(tt.payload))
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrStatusUnavailable)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseVersion(t *testing.T) {
	v, ok := ParseVersion("Lynx Core version v25.0.1\nCopyright (C) 2009-2024\n")
	require.True(t, ok)
	assert.Equal(t, "Lynx", v.Name)
	assert.Equal(t, "Lynx Core version v25.0.1", v.Line)
	assert.Equal(t, "v25.0.1", v.Version)

	_, ok = ParseVersion("  \n")
	assert.False(t, ok)
}

func rpcServer(t *testing.T, handler func(req rpcRequest) (any, *rpcError)) (host, port string) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "alice" || pass != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		var req rpcRequest
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&req)) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		result, rerr := handler(req)
		if rerr != nil {
			w.WriteHeader(http.StatusInternalServerError)
		}
		json.NewEncoder(w).Encode(map[string]any{"result": result, "error": rerr, "id": req.ID})
	}))
	t.Cleanup(srv.Close)
	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	host, port, err = net.SplitHostPort(u.Host)
	require.NoError(t, err)
	return host, port
}

func executable(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "lynx-cli")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"), 0755))
	return path
}

func TestInitialBlockDownload_HTTP(t *testing.T) {
	host, port := rpcServer(t, func(req rpcRequest) (any, *rpcError) {
		assert.Equal(t, "getblockchaininfo", req.Method)
		assert.NotEmpty(t, req.ID)
		return map[string]any{"initialblockdownload": false}, nil
	})

	runner := &cmdrunner.Fake{}
	c, err := NewClient(Options{Host: host, Port: port, User: "alice", Password: "secret", Runner: runner})
	require.NoError(t, err)

	ibd, err := c.InitialBlockDownload(context.Background())
	require.NoError(t, err)
	assert.False(t, ibd)
	assert.Empty(t, runner.Calls())
}

func TestCall_RPCErrorDoesNotFallBack(t *testing.T) {
	host, port := rpcServer(t, func(req rpcRequest) (any, *rpcError) {
		return nil, &rpcError{Code: -4, Message: "Error: Wallet backup failed!"}
	})

	runner := &cmdrunner.Fake{}
	c, err := NewClient(Options{Host: host, Port: port, User: "alice", Password: "secret", CLIPath: executable(t), Runner: runner})
	require.NoError(t, err)

	err = c.BackupWallet(context.Background(), "/tmp/x.dat")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Wallet backup failed")
	assert.Empty(t, runner.Calls())
}

func TestCall_FallsBackToCLI(t *testing.T) {
	runner := &cmdrunner.Fake{Handler: func(name string, args []string) ([]byte, error) {
		return []byte(`{"initialblockdownload": true}`), nil
	}}
	cli := executable(t)
	c, err := NewClient(Options{
		Host: "127.0.0.1", Port: "1", User: "alice", Password: "secret",
		CLIPath: cli, DataDir: "/var/lib/lynx", Runner: runner,
	})
	require.NoError(t, err)

	ibd, err := c.InitialBlockDownload(context.Background())
	require.NoError(t, err)
	assert.True(t, ibd)
	assert.Equal(t, []string{cli + " -datadir=/var/lib/lynx getblockchaininfo"}, runner.Calls())
}

func TestCall_NoTransport(t *testing.T) {
	c, err := NewClient(Options{CLIPath: filepath.Join(t.TempDir(), "missing"), Runner: &cmdrunner.Fake{}})
	require.NoError(t, err)

	assert.False(t, c.ControlAvailable())
	_, err = c.InitialBlockDownload(context.Background())
	assert.True(t, errors.Is(err, ErrStatusUnavailable))
}

func TestNewClient_ReadsConf(t *testing.T) {
	dir := t.TempDir()
	confPath := filepath.Join(dir, "lynx.conf")
	require.NoError(t, os.WriteFile(confPath, []byte("rpcuser=bob\nrpcpassword=pw\nrpcport=8400\n"), 0600))

	c, err := NewClient(Options{ConfPath: confPath, DataDir: dir, User: "override"})
	require.NoError(t, err)
	assert.Equal(t, "override", c.opts.User)
	assert.Equal(t, "pw", c.opts.Password)
	assert.Equal(t, "http://127.0.0.1:8400", c.url())
	assert.Equal(t, dir, c.DataDir())
}

func TestBlockCount_CLIPlainText(t *testing.T) {
	runner := &cmdrunner.Fake{Handler: func(name string, args []string) ([]byte, error) {
		return []byte("123456\n"), nil
	}}
	c, err := NewClient(Options{CLIPath: executable(t), Runner: runner})
	require.NoError(t, err)

	height, err := c.BlockCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(123456), height)
}

func TestNodeVersion(t *testing.T) {
	runner := &cmdrunner.Fake{Handler: func(name string, args []string) ([]byte, error) {
		return []byte("Lynx Core version v25.0.1\n"), nil
	}}
	c, err := NewClient(Options{Runner: runner})
	require.NoError(t, err)

	v, err := c.NodeVersion(context.Background(), "/usr/local/bin/lynxd")
	require.NoError(t, err)
	assert.Equal(t, "v25.0.1", v.Version)
	assert.Equal(t, []string{"/usr/local/bin/lynxd -version"}, runner.Calls())
}
