package memory

import (
	"time"

	"health-agent-be/pkg/agent"

	"github.com/patrickmn/go-cache"
)

// SessionRepository holds recent pipeline session states in memory so a
// caller can poll a run after the fact. States expire after an hour; they
// have no identity beyond that window.
type SessionRepository struct {
	cache *cache.Cache
}

func NewSessionRepository() *SessionRepository {
	// Default expiration 1 hour, purge sweep every 10 minutes
	c := cache.New(1*time.Hour, 10*time.Minute)
	return &SessionRepository{
		cache: c,
	}
}

func (r *SessionRepository) Save(state *agent.SessionState) {
	r.cache.Set(state.ID, state, cache.DefaultExpiration)
}

func (r *SessionRepository) Get(sessionID string) (*agent.SessionState, bool) {
	if x, found := r.cache.Get(sessionID); found {
		return x.(*agent.SessionState), true
	}
	return nil, false
}

func (r *SessionRepository) Delete(sessionID string) {
	r.cache.Delete(sessionID)
}
