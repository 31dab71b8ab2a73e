package trigger

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Sim is a software trigger source that fires edges at a fixed cadence.
// It stands in for the potentiostat in tests and in the server's mock mode.
type Sim struct {
	sync.Mutex

	limiter *rate.Limiter
	calls   int

	// Misses holds zero-based wait indices at which no edge will arrive;
	// those waits block for the full timeout and return ErrTimeout
	Misses map[int]bool

	// Skew is added to each reported edge time.  A positive skew larger
	// than the measurement duration makes the edge appear to postdate the
	// acquisition, reproducing the clock-skew race on real rigs.
	Skew time.Duration
}

// NewSim returns a simulated trigger firing every period, starting
// immediately
func NewSim(period time.Duration) *Sim {
	return &Sim{
		limiter: rate.NewLimiter(rate.Every(period), 1),
		Misses:  map[int]bool{},
	}
}

// WaitForEdge blocks until the next simulated edge or the timeout
func (s *Sim) WaitForEdge(timeout time.Duration) (time.Time, error) {
	s.Lock()
	n := s.calls
	s.calls++
	miss := s.Misses[n]
	s.Unlock()
	if miss {
		time.Sleep(timeout)
		return time.Time{}, ErrTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	err := s.limiter.Wait(ctx)
	if err != nil {
		return time.Time{}, ErrTimeout
	}
	return time.Now().Add(s.Skew), nil
}
