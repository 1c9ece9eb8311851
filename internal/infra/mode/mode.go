package mode

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/Thedy09/nkwa-vault-sub001/internal/domain"
)

const probeTimeout = 5 * time.Second

// Prober is a one-shot connectivity check exposed by the live adapters.
type Prober interface {
	Ping(ctx context.Context) error
}

// Controller owns the process-wide live/demo decision. It is decided once,
// covering every adapter at the same time, and never flips afterwards: a
// transient failure on a live call surfaces as unavailable rather than
// silently demoting the process.
type Controller struct {
	mu         sync.Mutex
	decided    bool
	mode       domain.Mode
	configured bool
	probes     []Prober
}

// NewController builds an undecided controller. configured reports whether
// live configuration is present at all; probes are the live adapters to
// check before committing to live mode.
func NewController(configured bool, probes ...Prober) *Controller {
	return &Controller{configured: configured, probes: probes}
}

// Decide settles the mode on first call and returns the settled value on
// every call after that.
func (c *Controller) Decide(ctx context.Context) domain.Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.decided {
		return c.mode
	}
	c.mode = c.probe(ctx)
	c.decided = true
	return c.mode
}

// Mode returns the settled mode, deciding with a background context when the
// caller has not decided explicitly.
func (c *Controller) Mode() domain.Mode {
	return c.Decide(context.Background())
}

func (c *Controller) probe(ctx context.Context) domain.Mode {
	if !c.configured {
		log.Printf("mode: live configuration absent, running in demo mode")
		return domain.ModeDemo
	}
	for _, p := range c.probes {
		probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
		err := p.Ping(probeCtx)
		cancel()
		if err != nil {
			log.Printf("mode: connectivity probe failed (%v), running in demo mode", err)
			return domain.ModeDemo
		}
	}
	return domain.ModeLive
}
