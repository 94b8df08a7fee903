package rpcclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClient_Call(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			JSONRPC string            `json:"jsonrpc"`
			Method  string            `json:"method"`
			Params  map[string]string `json:"params"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.JSONRPC != "2.0" {
			t.Errorf("jsonrpc = %q", req.JSONRPC)
		}
		switch req.Method {
		case "network_get":
			w.Write([]byte(`{"jsonrpc":"2.0","result":{"id":"` + req.Params["network"] + `"},"id":1}`))
		default:
			w.Write([]byte(`{"jsonrpc":"2.0","error":{"code":-32601,"message":"method not found"},"id":1}`))
		}
	}))
	defer srv.Close()

	c := New(srv.URL + "/")

	var out struct {
		ID string `json:"id"`
	}
	if err := c.Call(context.Background(), "network_get", map[string]string{"network": "bsc"}, &out); err != nil {
		t.Fatalf("Call() error: %v", err)
	}
	if out.ID != "bsc" {
		t.Errorf("result id = %q, want bsc", out.ID)
	}

	// A nil result discards the payload.
	if err := c.Call(context.Background(), "network_get", nil, nil); err != nil {
		t.Errorf("Call(nil result) error: %v", err)
	}

	err := c.Call(context.Background(), "nope", nil, &out)
	var rpcErr *RPCError
	if !errors.As(err, &rpcErr) {
		t.Fatalf("error = %v, want *RPCError", err)
	}
	if rpcErr.Code != -32601 {
		t.Errorf("code = %d", rpcErr.Code)
	}
}

func TestClient_CallHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	}))
	defer srv.Close()

	err := New(srv.URL).Call(context.Background(), "wallet_getState", nil, nil)
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) || httpErr.StatusCode != http.StatusForbidden {
		t.Errorf("error = %v, want 403 HTTPError", err)
	}
}
