package protocol

import (
	"github.com/go-gl/mathgl/mgl64"

	"vblocks.ai/internal/world"
)

func ObjectToWire(o world.Object) ObjectWire {
	return ObjectWire{
		ID:     int64(o.ID),
		Pos:    [3]float64(o.Position),
		Owner:  o.Owner,
		Model:  o.Model,
		Tag:    o.Tag,
		Action: o.Action,
	}
}

func ObjectFromWire(w ObjectWire) world.Object {
	return world.Object{
		ID:       world.ObjectID(w.ID),
		Position: mgl64.Vec3(w.Pos),
		Owner:    w.Owner,
		Model:    w.Model,
		Tag:      w.Tag,
		Action:   w.Action,
	}
}

// EventToWire encodes a world event as the message a client receives.
func EventToWire(ev world.Event) any {
	switch e := ev.(type) {
	case world.Click:
		return ClickMsg{
			Type:            TypeClick,
			ProtocolVersion: Version,
			Avatar:          AvatarRef{ID: e.Avatar.ID, Name: e.Avatar.Name},
			ObjectID:        int64(e.ObjectID),
			Hit:             [3]float64(e.Hit),
		}
	case world.ObjectCreated:
		return ObjectEventMsg{Type: TypeObjectCreate, ProtocolVersion: Version, Object: ObjectToWire(e.Object)}
	case world.ObjectDeleted:
		return ObjectEventMsg{Type: TypeObjectDelete, ProtocolVersion: Version, Object: ObjectToWire(e.Object)}
	case world.Chat:
		return ChatMsg{
			Type:            TypeChat,
			ProtocolVersion: Version,
			Avatar:          AvatarRef{ID: e.Avatar.ID, Name: e.Avatar.Name},
			Text:            e.Text,
		}
	default:
		return nil
	}
}
