package dataplane

import (
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
)

const defaultEchoWindow = 2 * time.Second

// echoGuard remembers frames written to a port so that the copy the port's
// own capturer sees on the way out is not dispatched again.
type echoGuard struct {
	mu      sync.Mutex
	pending *cache.Cache
}

func newEchoGuard(window time.Duration) *echoGuard {
	return &echoGuard{pending: cache.New(window, window)}
}

// sent records one outgoing copy of frame.
func (g *echoGuard) sent(frame []byte) {
	k := string(frame)
	g.mu.Lock()
	defer g.mu.Unlock()
	n, _ := g.pending.Get(k)
	c, _ := n.(int)
	g.pending.SetDefault(k, c+1)
}

// unsent forgets one outgoing copy of frame after a failed write.
func (g *echoGuard) unsent(frame []byte) {
	g.consume(frame)
}

// consume reports whether frame is an outstanding outgoing copy, and if so
// discounts it.
func (g *echoGuard) consume(frame []byte) bool {
	k := string(frame)
	g.mu.Lock()
	defer g.mu.Unlock()
	n, ok := g.pending.Get(k)
	if !ok {
		return false
	}
	if c, _ := n.(int); c > 1 {
		g.pending.SetDefault(k, c-1)
	} else {
		g.pending.Delete(k)
	}
	return true
}
