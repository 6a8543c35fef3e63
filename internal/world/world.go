// Package world describes the shared virtual world as the bot sees it: objects, the events
// it delivers, and the calls the bot can make against it.
package world

import (
	"context"
	"errors"

	"github.com/go-gl/mathgl/mgl64"
)

type ObjectID int64

// Object is a world object. Position is the base of the model, not its center.
type Object struct {
	ID       ObjectID
	Position mgl64.Vec3
	Owner    string
	Model    string
	Tag      string
	Action   string
}

type Avatar struct {
	ID   string
	Name string
}

var ErrNotFound = errors.New("world: object not found")

type Querier interface {
	QueryCell(ctx context.Context, cx, cz int) ([]Object, error)
}

type Builder interface {
	CreateObject(ctx context.Context, obj Object) (ObjectID, error)
	DeleteObject(ctx context.Context, id ObjectID) error
	GetObject(ctx context.Context, id ObjectID) (Object, error)
}

// Chatter broadcasts text into the world chat.
type Chatter interface {
	Say(ctx context.Context, text string) error
}

// Session is a logged-in connection to a world.
type Session interface {
	Querier
	Builder
	Chatter
	MoveTo(ctx context.Context, pos mgl64.Vec3) error
}
