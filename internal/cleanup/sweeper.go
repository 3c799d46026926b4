// Package cleanup expires sessions and rooms that outlived their TTL.
package cleanup

import (
	"context"
	"net/http"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
)

// Expirer is a store that can drop its expired entries.
type Expirer interface {
	// Expire removes expired entries and returns how many were dropped.
	Expire() int
}

// Sweeper runs Expire on every registered store.
type Sweeper struct {
	clock   clockwork.Clock
	log     logrus.FieldLogger
	targets map[string]Expirer
}

// New returns a sweeper over the named targets.
func New(clock clockwork.Clock, logger logrus.FieldLogger, targets map[string]Expirer) *Sweeper {
	return &Sweeper{clock: clock, log: logger, targets: targets}
}

// Sweep expires every target once and returns the total removed.
func (s *Sweeper) Sweep() int {
	total := 0
	for name, t := range s.targets {
		if n := t.Expire(); n > 0 {
			s.log.WithFields(logrus.Fields{"store": name, "count": n}).Info("expired entries")
			total += n
		}
	}
	return total
}

// Run sweeps every interval until ctx is done.
func (s *Sweeper) Run(ctx context.Context, interval time.Duration) {
	ticker := s.clock.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			s.Sweep()
		}
	}
}

// Middleware sweeps before handing every request to next.
func (s *Sweeper) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.Sweep()
		next.ServeHTTP(w, r)
	})
}
