package command

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"vblocks.ai/internal/build/session"
	"vblocks.ai/internal/catalogs"
	"vblocks.ai/internal/world"
)

type recorder struct {
	mu   sync.Mutex
	said []string
	err  error
}

func (r *recorder) Say(_ context.Context, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.said = append(r.said, text)
	return r.err
}

func (r *recorder) last() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.said) == 0 {
		return ""
	}
	return r.said[len(r.said)-1]
}

func newTestInterpreter(t *testing.T) (*Interpreter, *session.Store, *recorder) {
	t.Helper()
	tc, err := catalogs.NewTextureCatalog([]catalogs.TextureDef{
		{Name: "brick", Key: "sw-brick16a"},
		{Name: "stone", Key: "sw-stone2"},
		{Name: "wood", Key: "sw-wood14"},
	})
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	s := session.NewStore()
	r := &recorder{}
	return New(s, tc, r, nil), s, r
}

func chat(text string) world.Chat {
	return world.Chat{Avatar: world.Avatar{ID: "A1", Name: "ann"}, Text: text}
}

func TestHandle_Modes(t *testing.T) {
	in, s, r := newTestInterpreter(t)
	ctx := context.Background()

	if got := in.Handle(ctx, chat("/erase")); got != ModeChanged {
		t.Fatalf("erase outcome=%v", got)
	}
	if s.State("A1").Mode != session.Erase {
		t.Fatalf("mode not erase")
	}
	if r.last() != "Erasing mode activated for ann" {
		t.Fatalf("reply=%q", r.last())
	}

	if got := in.Handle(ctx, chat("/Build")); got != ModeChanged {
		t.Fatalf("build outcome=%v", got)
	}
	if s.State("A1").Mode != session.Build {
		t.Fatalf("mode not build")
	}
	if r.last() != "Building mode activated for ann" {
		t.Fatalf("reply=%q", r.last())
	}
}

func TestHandle_NonCommandIgnored(t *testing.T) {
	in, s, r := newTestInterpreter(t)
	for _, text := range []string{"hello", "brick", "", "   ", " /brick", "a /erase"} {
		if got := in.Handle(context.Background(), chat(text)); got != Ignored {
			t.Fatalf("%q outcome=%v", text, got)
		}
	}
	if len(r.said) != 0 {
		t.Fatalf("unexpected replies: %v", r.said)
	}
	if st := s.State("A1"); st.Mode != session.Build || st.Material != "" {
		t.Fatalf("state changed: %+v", st)
	}
}

func TestHandle_TextureCaseInsensitive(t *testing.T) {
	for _, text := range []string{"/BRICK", "/Brick", "/brick", "/bRICK"} {
		in, s, r := newTestInterpreter(t)
		s.SetMode("A1", session.Erase)
		if got := in.Handle(context.Background(), chat(text)); got != MaterialSelected {
			t.Fatalf("%q outcome=%v", text, got)
		}
		st := s.State("A1")
		if st.Material != "sw-brick16a" || st.Mode != session.Build {
			t.Fatalf("%q state=%+v", text, st)
		}
		if r.last() != "ann selected texture: brick" {
			t.Fatalf("%q reply=%q", text, r.last())
		}
	}
}

func TestHandle_UnknownTextureKeepsState(t *testing.T) {
	in, s, r := newTestInterpreter(t)
	s.Select("A1", "sw-stone2")
	s.SetMode("A1", session.Erase)
	if got := in.Handle(context.Background(), chat("/Marble")); got != UnknownTexture {
		t.Fatalf("outcome=%v", got)
	}
	if st := s.State("A1"); st.Mode != session.Erase || st.Material != "sw-stone2" {
		t.Fatalf("state changed: %+v", st)
	}
	if r.last() != "Unknown texture 'marble'. Type /listtextures to see available textures." {
		t.Fatalf("reply=%q", r.last())
	}
}

func TestHandle_WordTakenVerbatim(t *testing.T) {
	cases := []struct {
		text string
		word string
	}{
		{"/", ""},
		{"/ brick", " brick"},
		{"/brick ", "brick "},
	}
	for _, c := range cases {
		in, s, r := newTestInterpreter(t)
		if got := in.Handle(context.Background(), chat(c.text)); got != UnknownTexture {
			t.Fatalf("%q outcome=%v", c.text, got)
		}
		want := "Unknown texture '" + c.word + "'. Type /listtextures to see available textures."
		if r.last() != want {
			t.Fatalf("%q reply=%q want %q", c.text, r.last(), want)
		}
		if st := s.State("A1"); st.Material != "" {
			t.Fatalf("%q state=%+v", c.text, st)
		}
	}
}

func TestHandle_HelpAndList(t *testing.T) {
	in, _, r := newTestInterpreter(t)
	if got := in.Handle(context.Background(), chat("/help")); got != Help {
		t.Fatalf("outcome=%v", got)
	}
	if len(r.said) != 2 || !strings.Contains(r.said[0], "/listtextures") {
		t.Fatalf("help replies=%v", r.said)
	}
	if got := in.Handle(context.Background(), chat("/ListTextures")); got != Listed {
		t.Fatalf("outcome=%v", got)
	}
	if r.last() != "Available textures: brick, stone, wood" {
		t.Fatalf("reply=%q", r.last())
	}
}

func TestHandle_ChatFailureDoesNotUndoState(t *testing.T) {
	in, s, r := newTestInterpreter(t)
	r.err = errors.New("chat down")
	if got := in.Handle(context.Background(), chat("/wood")); got != MaterialSelected {
		t.Fatalf("outcome=%v", got)
	}
	if s.State("A1").Material != "sw-wood14" {
		t.Fatalf("material not applied")
	}
}

func TestOutcomeString(t *testing.T) {
	if MaterialSelected.String() != "material_selected" || Outcome(99).String() != "unknown" {
		t.Fatalf("names")
	}
}
