package server

import (
	"sync"

	"panelviz/internal/app"

	"github.com/google/uuid"
)

// SceneStore keeps the sessions created through the API. When full, the
// oldest session is dropped to make room.
type SceneStore struct {
	mu     sync.RWMutex
	limit  int
	order  []string
	scenes map[string]*app.State
}

// NewSceneStore creates a store holding at most limit sessions.
func NewSceneStore(limit int) *SceneStore {
	if limit <= 0 {
		limit = 1
	}
	return &SceneStore{
		limit:  limit,
		scenes: make(map[string]*app.State),
	}
}

// Put stores st under a fresh id and returns the id and any evicted id.
func (s *SceneStore) Put(st *app.State) (id, evicted string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.order) >= s.limit {
		evicted = s.order[0]
		s.order = s.order[1:]
		delete(s.scenes, evicted)
	}

	id = uuid.NewString()
	s.scenes[id] = st
	s.order = append(s.order, id)
	return id, evicted
}

// Get returns the session with id.
func (s *SceneStore) Get(id string) (*app.State, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.scenes[id]
	return st, ok
}

// Delete removes a session. It reports whether it existed.
func (s *SceneStore) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.scenes[id]; !ok {
		return false
	}
	delete(s.scenes, id)
	for i, o := range s.order {
		if o == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

// Len returns the number of sessions.
func (s *SceneStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.scenes)
}
