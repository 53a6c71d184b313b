package generator

import (
	"context"
	"log"
	"time"

	"github.com/Vencyderry/fitness-tracker-analytics/internal/observability"
)

// connector keeps dialing until the store answers. The retry interval is flat and attempts are unbounded.
type connector struct {
	dial     Dialer
	interval time.Duration
	clock    Clock
	logger   *log.Logger
	attempts int
}

func (c *connector) connect(ctx context.Context) (Store, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		c.attempts++
		store, err := c.dial(ctx)
		if err == nil {
			observability.RecordConnectionAttempt(true)
			return store, nil
		}
		observability.RecordConnectionAttempt(false)

		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		c.logger.Printf("waiting for database (attempt %d, retry in %s): %v", c.attempts, c.interval, err)

		if !sleep(ctx, c.clock, c.interval) {
			return nil, ctx.Err()
		}
	}
}
