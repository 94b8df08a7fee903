package rpc

import (
	"net/http/httptest"
	"testing"
)

func TestAccessPolicy_Permits(t *testing.T) {
	p := newAccessPolicy([]string{"10.0.0.0/8", "192.168.1.5"}, nil)

	tests := []struct {
		remote string
		want   bool
	}{
		{"10.1.2.3:5000", true},
		{"192.168.1.5:80", true},
		{"192.168.1.6:80", false},
		{"127.0.0.1:1234", false},
		{"not-an-addr", false},
	}
	for _, tt := range tests {
		r := httptest.NewRequest("POST", "/", nil)
		r.RemoteAddr = tt.remote
		if got := p.permits(r); got != tt.want {
			t.Errorf("permits(%s) = %v, want %v", tt.remote, got, tt.want)
		}
	}

	var open accessPolicy
	r := httptest.NewRequest("POST", "/", nil)
	r.RemoteAddr = "8.8.8.8:1"
	if !open.permits(r) {
		t.Error("zero policy should admit every address")
	}
}

func TestAccessPolicy_AllowOrigin(t *testing.T) {
	p := newAccessPolicy(nil, []string{"http://a.test", "http://b.test"})
	if got := p.allowOrigin("http://b.test"); got != "http://b.test" {
		t.Errorf("allowOrigin(b) = %q", got)
	}
	if got := p.allowOrigin("http://c.test"); got != "" {
		t.Errorf("allowOrigin(c) = %q, want empty", got)
	}
	if got := p.allowOrigin(""); got != "" {
		t.Errorf("allowOrigin(empty) = %q, want empty", got)
	}
}
