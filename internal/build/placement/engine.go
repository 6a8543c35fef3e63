// Package placement decides what a click does to the world and carries it out.
package placement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"vblocks.ai/internal/build/face"
	"vblocks.ai/internal/build/grid"
	"vblocks.ai/internal/build/occupancy"
	"vblocks.ai/internal/build/session"
	"vblocks.ai/internal/logging"
	"vblocks.ai/internal/world"
)

const (
	DefaultModel       = "p2cube0100"
	DefaultTag         = "inplay"
	DefaultCallTimeout = 5 * time.Second

	MsgOccupied = "Position is occupied."
)

type Config struct {
	Model string
	// Tag marks objects this bot manages. Clicks on untagged objects never build or erase.
	Tag         string
	CallTimeout time.Duration
	// Tolerance bounds how far a reported object may sit from its cell center before it is
	// logged as off-lattice. Zero disables the check.
	Tolerance float64
}

// World is the part of a world session the engine needs.
type World interface {
	world.Builder
	world.Chatter
}

type AuditLogger interface {
	WriteAudit(entry AuditEntry) error
}

type AuditEntry struct {
	Time     string     `json:"time"`
	Avatar   string     `json:"avatar"`
	Action   string     `json:"action"` // "CREATE" or "DELETE"
	Cell     [3]int64   `json:"cell"`
	Pos      [3]float64 `json:"pos"`
	ObjectID int64      `json:"object_id"`
	Material string     `json:"material,omitempty"`
}

type Action int

const (
	Ignored Action = iota
	Created
	Deleted
	Occupied
	Failed
)

var actionNames = [...]string{"ignored", "created", "deleted", "occupied", "failed"}

func (a Action) String() string {
	if a < Ignored || a > Failed {
		return "unknown"
	}
	return actionNames[a]
}

type Result struct {
	Action   Action
	Cell     grid.Cell
	ObjectID world.ObjectID
	// Face is set when a build click landed on an existing cube.
	Face    face.Face
	HitFace bool
}

type Engine struct {
	cfg      Config
	grid     grid.Grid
	index    *occupancy.Index
	sessions *session.Store
	world    World
	log      logrus.FieldLogger

	audit AuditLogger
	now   func() time.Time
}

func New(cfg Config, g grid.Grid, index *occupancy.Index, sessions *session.Store, w World, log logrus.FieldLogger) *Engine {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Tag == "" {
		cfg.Tag = DefaultTag
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = DefaultCallTimeout
	}
	if log == nil {
		log = logging.Nop()
	}
	return &Engine{
		cfg:      cfg,
		grid:     g,
		index:    index,
		sessions: sessions,
		world:    w,
		log:      log,
		now:      time.Now,
	}
}

// SetAuditLogger installs an optional sink for confirmed creates and deletes.
func (e *Engine) SetAuditLogger(a AuditLogger) { e.audit = a }

func (e *Engine) Grid() grid.Grid { return e.grid }

// Tagged reports whether obj is managed by this bot.
func (e *Engine) Tagged(obj world.Object) bool { return obj.Tag == e.cfg.Tag }

// HandleClick applies one click. The returned error is non-nil only for Failed results,
// which have already been reported to the avatar.
func (e *Engine) HandleClick(ctx context.Context, c world.Click) (Result, error) {
	st := e.sessions.State(c.Avatar.ID)
	if st.Mode == session.Erase {
		return e.erase(ctx, c)
	}

	if !c.HitObject() {
		return e.place(ctx, c, st, e.grid.CellOf(c.Hit), Result{})
	}

	obj, res, err := e.clickedObject(ctx, c)
	if err != nil || res.Action != Ignored || !e.Tagged(obj) {
		return res, err
	}

	size := e.grid.Size()
	f, ok := face.Resolve(face.CubeCenter(obj.Position, size), c.Hit)
	if !ok {
		return Result{Action: Ignored}, nil
	}
	target := e.grid.CellOf(obj.Position.Add(f.Offset(size)))
	return e.place(ctx, c, st, target, Result{Face: f, HitFace: true})
}

// ObjectCreated records a tagged object reported by the world, whoever placed it.
func (e *Engine) ObjectCreated(obj world.Object) {
	if !e.Tagged(obj) {
		return
	}
	e.index.Add(e.cellOf(obj))
}

func (e *Engine) ObjectDeleted(obj world.Object) {
	if !e.Tagged(obj) {
		return
	}
	e.index.Remove(e.cellOf(obj))
}

func (e *Engine) cellOf(obj world.Object) grid.Cell {
	if e.cfg.Tolerance > 0 {
		if d := e.grid.Drift(obj.Position); d > e.cfg.Tolerance {
			e.log.WithFields(logrus.Fields{"object_id": obj.ID, "drift": d}).Warn("object off lattice")
		}
	}
	return e.grid.CellOf(obj.Position)
}

func (e *Engine) erase(ctx context.Context, c world.Click) (Result, error) {
	if !c.HitObject() {
		return Result{Action: Ignored}, nil
	}
	obj, res, err := e.clickedObject(ctx, c)
	if err != nil || res.Action != Ignored || !e.Tagged(obj) {
		return res, err
	}

	cell := e.grid.CellOf(obj.Position)
	callCtx, cancel := context.WithTimeout(ctx, e.cfg.CallTimeout)
	err = e.world.DeleteObject(callCtx, obj.ID)
	cancel()
	if err != nil {
		return e.fail(ctx, c, cell, "Could not erase cube", err)
	}
	e.index.Remove(cell)
	e.record(c.Avatar.ID, "DELETE", cell, obj.ID, "")
	e.log.WithFields(logrus.Fields{"avatar": c.Avatar.ID, "cell": cell.String(), "object_id": obj.ID}).Info("cube erased")
	return Result{Action: Deleted, Cell: cell, ObjectID: obj.ID}, nil
}

// clickedObject fetches the object under a click. A vanished object yields an Ignored
// result with a zero object, which callers treat as untagged.
func (e *Engine) clickedObject(ctx context.Context, c world.Click) (world.Object, Result, error) {
	callCtx, cancel := context.WithTimeout(ctx, e.cfg.CallTimeout)
	obj, err := e.world.GetObject(callCtx, c.ObjectID)
	cancel()
	if errors.Is(err, world.ErrNotFound) {
		return world.Object{}, Result{Action: Ignored}, nil
	}
	if err != nil {
		res, err := e.fail(ctx, c, grid.Cell{}, "Could not read object", err)
		return world.Object{}, res, err
	}
	return obj, Result{Action: Ignored}, nil
}

func (e *Engine) place(ctx context.Context, c world.Click, st session.State, cell grid.Cell, res Result) (Result, error) {
	res.Cell = cell
	fields := logrus.Fields{"avatar": c.Avatar.ID, "cell": cell.String()}

	if !e.index.Reserve(cell) {
		e.log.WithFields(fields).Debug("cell occupied")
		e.say(ctx, MsgOccupied)
		res.Action = Occupied
		return res, nil
	}

	obj := world.Object{
		Position: e.grid.Center(cell),
		Owner:    c.Avatar.ID,
		Model:    e.cfg.Model,
		Tag:      e.cfg.Tag,
		Action:   MaterialAction(st.Material),
	}
	callCtx, cancel := context.WithTimeout(ctx, e.cfg.CallTimeout)
	id, err := e.world.CreateObject(callCtx, obj)
	cancel()
	if err != nil {
		e.index.Release(cell)
		r, err := e.fail(ctx, c, cell, "Could not place cube", err)
		r.Face, r.HitFace = res.Face, res.HitFace
		return r, err
	}
	e.index.Commit(cell)
	e.record(c.Avatar.ID, "CREATE", cell, id, st.Material)
	e.log.WithFields(fields).WithField("object_id", id).Info("cube placed")

	res.Action = Created
	res.ObjectID = id
	return res, nil
}

func (e *Engine) fail(ctx context.Context, c world.Click, cell grid.Cell, what string, err error) (Result, error) {
	e.log.WithError(err).WithFields(logrus.Fields{"avatar": c.Avatar.ID, "cell": cell.String()}).Warn(what)
	e.say(ctx, fmt.Sprintf("%s: %v", what, err))
	return Result{Action: Failed, Cell: cell}, fmt.Errorf("%s: %w", what, err)
}

func (e *Engine) say(ctx context.Context, text string) {
	callCtx, cancel := context.WithTimeout(ctx, e.cfg.CallTimeout)
	defer cancel()
	if err := e.world.Say(callCtx, text); err != nil {
		e.log.WithError(err).Warn("chat reply failed")
	}
}

func (e *Engine) record(avatar, action string, cell grid.Cell, id world.ObjectID, material string) {
	if e.audit == nil {
		return
	}
	p := e.grid.Center(cell)
	entry := AuditEntry{
		Time:     e.now().UTC().Format(time.RFC3339Nano),
		Avatar:   avatar,
		Action:   action,
		Cell:     [3]int64(cell),
		Pos:      [3]float64{p[0], p[1], p[2]},
		ObjectID: int64(id),
		Material: material,
	}
	if err := e.audit.WriteAudit(entry); err != nil {
		e.log.WithError(err).Warn("audit write failed")
	}
}

// MaterialAction is the object action string that applies a texture, or "" for none.
func MaterialAction(key string) string {
	if key == "" {
		return ""
	}
	return "create texture " + key
}

// MultiAudit writes every entry to each sink and returns the first error.
type MultiAudit []AuditLogger

func (m MultiAudit) WriteAudit(e AuditEntry) error {
	var first error
	for _, a := range m {
		if err := a.WriteAudit(e); err != nil && first == nil {
			first = err
		}
	}
	return first
}
