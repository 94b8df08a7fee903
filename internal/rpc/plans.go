package rpc

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Klingon-tech/nova-wallet/internal/session"
)

const (
	// planTTL bounds how long a quoted fee may be confirmed.
	planTTL = 5 * time.Minute

	maxPlans = 16
)

type storedPlan struct {
	plan    *session.SendPlan
	expires time.Time
}

// planCache holds prepared sends between wallet_prepareSend and
// wallet_confirmSend. Plans are single use.
type planCache struct {
	mu    sync.Mutex
	ttl   time.Duration
	limit int
	now   func() time.Time
	plans map[string]storedPlan
	order []string // Insertion order, oldest first.
}

func newPlanCache(ttl time.Duration, limit int) *planCache {
	return &planCache{
		ttl:   ttl,
		limit: limit,
		now:   time.Now,
		plans: make(map[string]storedPlan),
	}
}

// put stores plan and returns its ID and expiry.
func (c *planCache) put(plan *session.SendPlan) (string, time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.evictLocked()
	for len(c.order) >= c.limit {
		delete(c.plans, c.order[0])
		c.order = c.order[1:]
	}

	id := uuid.NewString()
	expires := c.now().Add(c.ttl)
	c.plans[id] = storedPlan{plan: plan, expires: expires}
	c.order = append(c.order, id)
	return id, expires
}

// take removes and returns the plan with id, if present and not expired.
func (c *planCache) take(id string) (*session.SendPlan, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.evictLocked()
	p, ok := c.plans[id]
	if !ok {
		return nil, false
	}
	delete(c.plans, id)
	for i, o := range c.order {
		if o == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return p.plan, true
}

// clear drops every plan. Used when the session ends.
func (c *planCache) clear() {
	c.mu.Lock()
	c.plans = make(map[string]storedPlan)
	c.order = nil
	c.mu.Unlock()
}

func (c *planCache) evictLocked() {
	now := c.now()
	kept := c.order[:0]
	for _, id := range c.order {
		if now.After(c.plans[id].expires) {
			delete(c.plans, id)
			continue
		}
		kept = append(kept, id)
	}
	c.order = kept
}

func (c *planCache) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.plans)
}
