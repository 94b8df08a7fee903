package node

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Klingon-tech/nova-wallet/config"
	klog "github.com/Klingon-tech/nova-wallet/internal/log"
	"github.com/Klingon-tech/nova-wallet/internal/session"
)

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home dir")
	}
	tests := []struct {
		input, want string
	}{
		{"~/foo/bar", filepath.Join(home, "foo/bar")},
		{"~/.nova-wallet", filepath.Join(home, ".nova-wallet")},
		{"/absolute/path", "/absolute/path"},
		{"relative/path", "relative/path"},
		{"", ""},
	}
	for _, tt := range tests {
		got := expandHome(tt.input)
		if got != tt.want {
			t.Errorf("expandHome(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.DataDir = t.TempDir()
	cfg.Storage = config.StorageMemory
	cfg.Log.Level = "disabled"
	cfg.RPC.Enabled = false
	cfg.Refresh.Interval = time.Hour
	t.Cleanup(func() { klog.SetOutput(os.Stderr, "info") })
	return cfg
}

// freePort returns a port that was free a moment ago.
func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()
	return port
}

func TestNode_Lifecycle(t *testing.T) {
	cfg := testConfig(t)

	n, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if err := n.Start(); err != nil {
		n.Stop()
		t.Fatalf("Start() error: %v", err)
	}

	if n.RPCAddr() != "" {
		t.Errorf("RPC disabled but RPCAddr = %q", n.RPCAddr())
	}
	if got := n.Wallet().State(); got != session.Uninitialized {
		t.Errorf("state = %s", got)
	}
	if _, err := os.Stat(filepath.Join(cfg.LogsDir(), DefaultLogFile)); err != nil {
		t.Errorf("log file not created: %v", err)
	}

	n.Stop()

	// The controller slot is free again after Stop.
	again, err := New(testConfig(t))
	if err != nil {
		t.Fatalf("second New() error: %v", err)
	}
	again.Stop()
}

func TestNode_SecondInstance(t *testing.T) {
	n, err := New(testConfig(t))
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	defer n.Stop()

	if _, err := New(testConfig(t)); err == nil {
		t.Error("second node in one process should fail")
	}
}

func TestNode_RPC(t *testing.T) {
	cfg := testConfig(t)
	cfg.RPC.Enabled = true
	cfg.RPC.Port = freePort(t)

	n, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if err := n.Start(); err != nil {
		n.Stop()
		t.Fatalf("Start() error: %v", err)
	}
	defer n.Stop()

	want := fmt.Sprintf("127.0.0.1:%d", cfg.RPC.Port)
	if n.RPCAddr() != want {
		t.Errorf("RPCAddr = %s, want %s", n.RPCAddr(), want)
	}

	body := []byte(`{"jsonrpc":"2.0","method":"wallet_getState","id":1}`)
	resp, err := http.Post("http://"+n.RPCAddr()+"/", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()

	var out struct {
		Result struct {
			State string `json:"state"`
		} `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Result.State != "uninitialized" {
		t.Errorf("state = %q", out.Result.State)
	}
}

func TestNode_InvalidConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Network = "dogecoin"
	if _, err := New(cfg); err == nil {
		t.Error("invalid config should fail")
	}
}
