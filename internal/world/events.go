package world

import "github.com/go-gl/mathgl/mgl64"

// Event is one notification from the world. The concrete types are Click, ObjectCreated,
// ObjectDeleted and Chat.
type Event interface {
	isEvent()
}

// Click is an avatar clicking the world. ObjectID is zero when the click hit the ground.
type Click struct {
	Avatar   Avatar
	ObjectID ObjectID
	Hit      mgl64.Vec3
}

type ObjectCreated struct {
	Object Object
}

type ObjectDeleted struct {
	Object Object
}

type Chat struct {
	Avatar Avatar
	Text   string
}

func (Click) isEvent()         {}
func (ObjectCreated) isEvent() {}
func (ObjectDeleted) isEvent() {}
func (Chat) isEvent()          {}

// HitObject reports whether the click landed on an object rather than the ground.
func (c Click) HitObject() bool { return c.ObjectID != 0 }
