package notify

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

type cooldownKey struct {
	userID  string
	venueID string
}

// CooldownIndex remembers when each (user, venue) pair was last notified
// and suppresses repeats inside a rolling window. Entries older than the
// window are pruned as they are touched.
type CooldownIndex struct {
	mu     sync.Mutex
	last   map[cooldownKey]time.Time
	window time.Duration
	clock  clockwork.Clock
}

// NewCooldownIndex creates an index with the given suppression window.
func NewCooldownIndex(window time.Duration, clock clockwork.Clock) *CooldownIndex {
	return &CooldownIndex{
		last:   make(map[cooldownKey]time.Time),
		window: window,
		clock:  clock,
	}
}

// Allowed reports whether the pair may be notified now. It does not
// record anything; call Mark once the alert has actually been delivered.
func (c *CooldownIndex) Allowed(userID, venueID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	at, ok := c.last[cooldownKey{userID: userID, venueID: venueID}]
	return !ok || c.clock.Now().Sub(at) >= c.window
}

// Mark records a delivered notification, starting the window for the pair.
func (c *CooldownIndex) Mark(userID, venueID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.last[cooldownKey{userID: userID, venueID: venueID}] = c.clock.Now()
}

// Prune drops entries older than the window. Called once per check cycle
// to keep the index from growing with churned users.
func (c *CooldownIndex) Prune() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	for key, at := range c.last {
		if now.Sub(at) >= c.window {
			delete(c.last, key)
		}
	}
}
