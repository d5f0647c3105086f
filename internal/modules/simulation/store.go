package simulation

import (
	"sync"
	"time"

	"github.com/ycliang/growthsim/internal/domain"
)

// RunStore keeps finished runs in memory for a short window so the
// client can fetch the CSV export or feed a run into the analyzers
// without re-simulating. Nothing persists across restarts.
type RunStore struct {
	mu   sync.RWMutex
	ttl  time.Duration
	runs map[string]storedRun
}

type storedRun struct {
	result  *Result
	expires time.Time
}

// NewRunStore creates a store whose entries expire after ttl.
func NewRunStore(ttl time.Duration) *RunStore {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &RunStore{
		ttl:  ttl,
		runs: make(map[string]storedRun),
	}
}

// Put keeps a finished run, keyed by its summary run ID, and evicts
// anything already expired.
func (s *RunStore) Put(result *Result) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for id, run := range s.runs {
		if now.After(run.expires) {
			delete(s.runs, id)
		}
	}

	s.runs[result.Summary.RunID] = storedRun{
		result:  result,
		expires: now.Add(s.ttl),
	}
}

// Get returns a kept run or domain.ErrRunNotFound.
func (s *RunStore) Get(id string) (*Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, ok := s.runs[id]
	if !ok || time.Now().After(run.expires) {
		return nil, domain.ErrRunNotFound
	}
	return run.result, nil
}
