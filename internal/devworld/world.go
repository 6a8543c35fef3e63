// Package devworld is a small in-memory world for local runs and tests. It keeps objects
// by id, answers cell queries, and fans every change out to subscribers.
package devworld

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"

	"vblocks.ai/internal/protocol"
	"vblocks.ai/internal/world"
)

type Config struct {
	Name     string
	CellSpan float64
	// Accounts maps user name to password. Empty means any login is accepted.
	Accounts map[string]string
}

type World struct {
	cfg Config

	// mu also serializes publishing so subscribers see changes in commit order.
	mu      sync.Mutex
	nextID  world.ObjectID
	objects map[world.ObjectID]world.Object
	avatars map[string]mgl64.Vec3
	subs    map[int]func(world.Event)
	nextSub int
}

func New(cfg Config) *World {
	if cfg.Name == "" {
		cfg.Name = "Parvenu"
	}
	if cfg.CellSpan <= 0 {
		cfg.CellSpan = 10
	}
	return &World{
		cfg:     cfg,
		objects: map[world.ObjectID]world.Object{},
		avatars: map[string]mgl64.Vec3{},
		subs:    map[int]func(world.Event){},
	}
}

func (w *World) Name() string      { return w.cfg.Name }
func (w *World) CellSpan() float64 { return w.cfg.CellSpan }

// Login checks credentials and returns a fresh session id.
func (w *World) Login(user, password, worldName string) (sessionID string, err error) {
	if worldName != w.cfg.Name {
		return "", &protocol.Error{Code: protocol.ErrWorldNotFound, Message: worldName}
	}
	if len(w.cfg.Accounts) > 0 {
		want, ok := w.cfg.Accounts[user]
		if !ok || want != password {
			return "", &protocol.Error{Code: protocol.ErrAuthFailed, Message: "bad user or password"}
		}
	}
	return uuid.NewString(), nil
}

// Subscribe registers fn for every event. fn runs with the world locked and must not block
// or call back into the world.
func (w *World) Subscribe(fn func(world.Event)) (cancel func()) {
	w.mu.Lock()
	id := w.nextSub
	w.nextSub++
	w.subs[id] = fn
	w.mu.Unlock()
	return func() {
		w.mu.Lock()
		delete(w.subs, id)
		w.mu.Unlock()
	}
}

func (w *World) publishLocked(ev world.Event) {
	ids := make([]int, 0, len(w.subs))
	for id := range w.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		w.subs[id](ev)
	}
}

func (w *World) cellOf(p mgl64.Vec3) (int, int) {
	return int(math.Floor(p[0] / w.cfg.CellSpan)), int(math.Floor(p[2] / w.cfg.CellSpan))
}

func (w *World) QueryCell(_ context.Context, cx, cz int) ([]world.Object, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	var out []world.Object
	for _, o := range w.objects {
		if x, z := w.cellOf(o.Position); x == cx && z == cz {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (w *World) CreateObject(_ context.Context, obj world.Object) (world.ObjectID, error) {
	if obj.Model == "" {
		return 0, &protocol.Error{Code: protocol.ErrProtoBadRequest, Message: "missing model"}
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.nextID++
	obj.ID = w.nextID
	w.objects[obj.ID] = obj
	w.publishLocked(world.ObjectCreated{Object: obj})
	return obj.ID, nil
}

func (w *World) DeleteObject(_ context.Context, id world.ObjectID) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	obj, ok := w.objects[id]
	if !ok {
		return fmt.Errorf("object %d: %w", id, world.ErrNotFound)
	}
	delete(w.objects, id)
	w.publishLocked(world.ObjectDeleted{Object: obj})
	return nil
}

func (w *World) GetObject(_ context.Context, id world.ObjectID) (world.Object, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	obj, ok := w.objects[id]
	if !ok {
		return world.Object{}, fmt.Errorf("object %d: %w", id, world.ErrNotFound)
	}
	return obj, nil
}

func (w *World) Chat(from world.Avatar, text string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.publishLocked(world.Chat{Avatar: from, Text: text})
}

func (w *World) Click(from world.Avatar, id world.ObjectID, hit mgl64.Vec3) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.publishLocked(world.Click{Avatar: from, ObjectID: id, Hit: hit})
}

func (w *World) Move(who string, pos mgl64.Vec3) {
	w.mu.Lock()
	w.avatars[who] = pos
	w.mu.Unlock()
}

func (w *World) AvatarPos(who string) (mgl64.Vec3, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	p, ok := w.avatars[who]
	return p, ok
}

// Objects returns every object ordered by id.
func (w *World) Objects() []world.Object {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]world.Object, 0, len(w.objects))
	for _, o := range w.objects {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Session binds the world to one speaker so it satisfies world.Session in-process.
type Session struct {
	*World
	Avatar world.Avatar
}

func (w *World) Session(as world.Avatar) *Session {
	return &Session{World: w, Avatar: as}
}

func (s *Session) Say(_ context.Context, text string) error {
	s.World.Chat(s.Avatar, text)
	return nil
}

func (s *Session) MoveTo(_ context.Context, pos mgl64.Vec3) error {
	s.World.Move(s.Avatar.ID, pos)
	return nil
}

var _ world.Session = (*Session)(nil)
