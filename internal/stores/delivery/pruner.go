package delivery

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultPruneSpec runs the pruner at the top of every hour
const DefaultPruneSpec = "@hourly"

// Pruner periodically drops ledger entries older than the retention
type Pruner struct {
	ledger    Ledger
	retention time.Duration
	cron      *cron.Cron
	now       func() time.Time
}

// NewPruner schedules ledger pruning on a cron spec. Retention must cover the
// dedup window, or entries would be dropped while they can still suppress a send.
func NewPruner(ledger Ledger, spec string, retention, window time.Duration) (*Pruner, error) {
	if ledger == nil {
		return nil, fmt.Errorf("a valid ledger must be provided")
	}
	if retention <= 0 {
		return nil, fmt.Errorf("retention must be positive")
	}
	if retention < window {
		return nil, fmt.Errorf("retention %s is shorter than the delivery window %s", retention, window)
	}
	if spec == "" {
		spec = DefaultPruneSpec
	}

	p := &Pruner{
		ledger:    ledger,
		retention: retention,
		cron:      cron.New(),
		now:       time.Now,
	}

	if _, err := p.cron.AddFunc(spec, func() {
		if _, err := p.Run(context.Background()); err != nil {
			log.Printf("[DELIVERY]: ledger prune failed: %v\n", err)
		}
	}); err != nil {
		return nil, fmt.Errorf("failed to schedule ledger prune with spec '%s': %w", spec, err)
	}

	return p, nil
}

// Start begins the cron schedule
func (p *Pruner) Start() {
	p.cron.Start()
}

// Stop halts the cron schedule and waits for a running prune to finish
func (p *Pruner) Stop() {
	<-p.cron.Stop().Done()
}

// Run prunes once
func (p *Pruner) Run(ctx context.Context) (int64, error) {
	removed, err := p.ledger.Prune(ctx, p.now().Add(-p.retention))
	if err != nil {
		return 0, err
	}

	if removed > 0 {
		log.Printf("[DELIVERY]: pruned %d ledger entries\n", removed)
	}
	return removed, nil
}
