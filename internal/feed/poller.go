package feed

import (
	"context"
	"time"
)

// Source is the node surface the poller watches.
type Source interface {
	GetBestBlockHash(ctx context.Context) (string, error)
	GetBlockCount(ctx context.Context) (int64, error)
	MempoolTxIDs(ctx context.Context) ([]string, error)
}

// Poller watches the node for new blocks and mempool transactions and
// publishes what changed since the previous poll. The first poll only
// records a baseline.
type Poller struct {
	src      Source
	pub      Publisher
	interval time.Duration
	logger   Logger

	primed    bool
	bestBlock string
	mempool   map[string]struct{}
}

// NewPoller creates a poller.
func NewPoller(src Source, pub Publisher, interval time.Duration, logger Logger) *Poller {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Poller{
		src:      src,
		pub:      pub,
		interval: interval,
		logger:   logger,
		mempool:  make(map[string]struct{}),
	}
}

// Run polls until ctx is done. Poll failures are logged and retried on the
// next tick.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		if err := p.Poll(ctx); err != nil && ctx.Err() == nil {
			p.logger.Error("feed: poll failed: %v", err)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Poll runs one poll cycle.
func (p *Poller) Poll(ctx context.Context) error {
	hash, err := p.src.GetBestBlockHash(ctx)
	if err != nil {
		return err
	}

	txids, err := p.src.MempoolTxIDs(ctx)
	if err != nil {
		return err
	}

	if p.primed && hash != p.bestBlock {
		height, err := p.src.GetBlockCount(ctx)
		if err != nil {
			return err
		}
		p.pub.Publish(Message{Type: TypeBlocks, Hash: hash, Height: height})
	}
	p.bestBlock = hash

	current := make(map[string]struct{}, len(txids))
	var fresh []string
	for _, txid := range txids {
		current[txid] = struct{}{}
		if _, seen := p.mempool[txid]; !seen {
			fresh = append(fresh, txid)
		}
	}
	p.mempool = current

	if p.primed && len(fresh) > 0 {
		p.pub.Publish(Message{Type: TypeTransactions, TxIDs: fresh})
	}

	p.primed = true
	return nil
}
