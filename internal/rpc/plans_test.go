package rpc

import (
	"testing"
	"time"

	"github.com/Klingon-tech/nova-wallet/internal/session"
)

func TestPlanCache_TakeOnce(t *testing.T) {
	c := newPlanCache(time.Minute, 4)
	plan := &session.SendPlan{NetworkID: "ethereum", Amount: "1"}

	id, expires := c.put(plan)
	if id == "" {
		t.Fatal("empty plan id")
	}
	if !expires.After(time.Now()) {
		t.Error("expiry should be in the future")
	}

	got, ok := c.take(id)
	if !ok || got != plan {
		t.Fatal("stored plan not returned")
	}
	if _, ok := c.take(id); ok {
		t.Error("plan should be single use")
	}
}

func TestPlanCache_Expiry(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	c := newPlanCache(time.Minute, 4)
	c.now = func() time.Time { return now }

	id, _ := c.put(&session.SendPlan{})
	now = now.Add(2 * time.Minute)
	if _, ok := c.take(id); ok {
		t.Error("expired plan should not be returned")
	}
	if c.size() != 0 {
		t.Errorf("size = %d after expiry", c.size())
	}
}

func TestPlanCache_Limit(t *testing.T) {
	c := newPlanCache(time.Minute, 2)
	first, _ := c.put(&session.SendPlan{Amount: "1"})
	c.put(&session.SendPlan{Amount: "2"})
	c.put(&session.SendPlan{Amount: "3"})

	if c.size() != 2 {
		t.Errorf("size = %d, want 2", c.size())
	}
	if _, ok := c.take(first); ok {
		t.Error("oldest plan should have been evicted")
	}

	c.clear()
	if c.size() != 0 {
		t.Error("clear should drop every plan")
	}
}
