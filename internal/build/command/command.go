// Package command turns chat lines into mode and material changes.
package command

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"vblocks.ai/internal/build/session"
	"vblocks.ai/internal/catalogs"
	"vblocks.ai/internal/logging"
	"vblocks.ai/internal/world"
)

const Marker = "/"

type Outcome int

const (
	Ignored Outcome = iota
	ModeChanged
	Help
	Listed
	MaterialSelected
	UnknownTexture
)

var outcomeNames = [...]string{"ignored", "mode_changed", "help", "listed", "material_selected", "unknown_texture"}

func (o Outcome) String() string {
	if o < Ignored || o > UnknownTexture {
		return "unknown"
	}
	return outcomeNames[o]
}

type Interpreter struct {
	sessions *session.Store
	textures catalogs.TextureCatalog
	chat     world.Chatter
	log      logrus.FieldLogger
}

func New(sessions *session.Store, textures catalogs.TextureCatalog, chat world.Chatter, log logrus.FieldLogger) *Interpreter {
	if log == nil {
		log = logging.Nop()
	}
	return &Interpreter{sessions: sessions, textures: textures, chat: chat, log: log}
}

// Handle interprets one chat line from an avatar. State changes are applied before any
// reply is sent, and a failed reply never undoes them.
func (in *Interpreter) Handle(ctx context.Context, msg world.Chat) Outcome {
	if !strings.HasPrefix(msg.Text, Marker) {
		return Ignored
	}
	// The word is taken verbatim, so "/" alone or "/ brick" is an unknown texture.
	word := strings.ToLower(strings.TrimPrefix(msg.Text, Marker))
	id := msg.Avatar.ID
	name := msg.Avatar.Name
	if name == "" {
		name = id
	}

	switch word {
	case "erase":
		in.sessions.SetMode(id, session.Erase)
		in.say(ctx, fmt.Sprintf("Erasing mode activated for %s", name))
		return ModeChanged
	case "build":
		in.sessions.SetMode(id, session.Build)
		in.say(ctx, fmt.Sprintf("Building mode activated for %s", name))
		return ModeChanged
	case "help":
		in.say(ctx, "Available commands: /erase, /build, /help, /listtextures")
		in.say(ctx, "To select a texture, type /texture_name (e.g., /brick)")
		return Help
	case "listtextures":
		in.say(ctx, "Available textures: "+strings.Join(in.textures.Names(), ", "))
		return Listed
	}

	def, ok := in.textures.Lookup(word)
	if !ok {
		in.say(ctx, fmt.Sprintf("Unknown texture '%s'. Type /listtextures to see available textures.", word))
		return UnknownTexture
	}
	in.sessions.Select(id, def.Key)
	in.log.WithFields(logrus.Fields{"avatar": id, "texture": def.Key}).Debug("texture selected")
	in.say(ctx, fmt.Sprintf("%s selected texture: %s", name, word))
	return MaterialSelected
}

func (in *Interpreter) say(ctx context.Context, text string) {
	if in.chat == nil {
		return
	}
	if err := in.chat.Say(ctx, text); err != nil {
		in.log.WithError(err).Warn("chat reply failed")
	}
}
