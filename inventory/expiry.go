/*
expiry.go - Automatic expiry of returnable allocations

PURPOSE:
  A returnable allocation nobody returned is treated as used once it is
  older than MaxAge (seven days by default). The sweep marks those
  allocations consumed. The ledger quantity is not touched: an expired
  returnable item still exists, it is just no longer reserved.

IDEMPOTENCE:
  MarkConsumed only flips rows that are still active. A second sweep over
  the same window finds nothing, and an allocation returned or consumed
  between the scan and the flip is skipped.

FAILURES:
  The sweep is best effort. A failure on one allocation is collected and
  the rest are still processed; the joined error is returned at the end.

SEE ALSO:
  - api/scheduler.go: cron job that calls Sweep and records runs
*/
package inventory

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
)

type SweepResult struct {
	Cutoff  time.Time
	Scanned int
	Expired []AllocationID
}

// Sweep consumes every active returnable allocation created before now-MaxAge.
func (e *Engine) Sweep(ctx context.Context, now time.Time) (SweepResult, error) {
	res := SweepResult{Cutoff: now.Add(-e.MaxAge)}

	candidates, err := e.store.ListExpirable(ctx, res.Cutoff)
	if err != nil {
		return res, wrapStore("list expirable", err)
	}
	res.Scanned = len(candidates)

	var errs []error
	for _, a := range candidates {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		expired, err := e.expire(ctx, a)
		if err != nil {
			if IsNotFound(err) {
				continue
			}
			e.log.WithError(err).WithField("allocation", a.ID).Warn("expiry failed")
			errs = append(errs, err)
			continue
		}
		if expired {
			res.Expired = append(res.Expired, a.ID)
		}
	}

	e.log.WithFields(logrus.Fields{
		"cutoff":  res.Cutoff.Format(time.RFC3339),
		"scanned": res.Scanned,
		"expired": len(res.Expired),
	}).Info("expiry sweep finished")
	return res, errors.Join(errs...)
}

func (e *Engine) expire(ctx context.Context, a Allocation) (bool, error) {
	var changed bool
	err := e.withResource(ctx, a.ResourceID, func(s Store) error {
		var err error
		changed, err = s.MarkConsumed(ctx, a.ID)
		return wrapStore("expire allocation", err)
	})
	return changed, err
}
