// Package session keeps each avatar's building mode and selected material.
package session

import (
	"sync"
	"sync/atomic"
)

type Mode int

const (
	Build Mode = iota
	Erase
)

func (m Mode) String() string {
	if m == Erase {
		return "erase"
	}
	return "build"
}

// State is a copy of one avatar's settings. Material is the external texture key, or ""
// when the world default applies.
type State struct {
	Mode     Mode
	Material string
}

type Session struct {
	mu    sync.RWMutex
	state State
}

func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Session) setMode(m Mode) {
	s.mu.Lock()
	s.state.Mode = m
	s.mu.Unlock()
}

func (s *Session) setMaterial(key string) {
	s.mu.Lock()
	s.state.Material = key
	s.mu.Unlock()
}

func (s *Session) selectMaterial(key string) {
	s.mu.Lock()
	s.state.Material = key
	s.state.Mode = Build
	s.mu.Unlock()
}

// Store maps avatar ids to sessions. Avatars never share a lock: lookups go through a
// sync.Map and each Session guards only its own fields.
type Store struct {
	sessions sync.Map // avatar id -> *Session
	n        atomic.Int64
}

func NewStore() *Store { return &Store{} }

func (s *Store) GetOrCreate(avatarID string) *Session {
	if v, ok := s.sessions.Load(avatarID); ok {
		return v.(*Session)
	}
	v, loaded := s.sessions.LoadOrStore(avatarID, &Session{})
	if !loaded {
		s.n.Add(1)
	}
	return v.(*Session)
}

func (s *Store) State(avatarID string) State {
	return s.GetOrCreate(avatarID).State()
}

func (s *Store) SetMode(avatarID string, m Mode) {
	s.GetOrCreate(avatarID).setMode(m)
}

func (s *Store) SetMaterial(avatarID, key string) {
	s.GetOrCreate(avatarID).setMaterial(key)
}

// Select sets the material and switches back to Build in one step.
func (s *Store) Select(avatarID, key string) {
	s.GetOrCreate(avatarID).selectMaterial(key)
}

// Len is the number of avatars seen so far.
func (s *Store) Len() int { return int(s.n.Load()) }
