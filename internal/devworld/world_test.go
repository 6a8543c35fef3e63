package devworld

import (
	"context"
	"errors"
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"vblocks.ai/internal/protocol"
	"vblocks.ai/internal/world"
)

func TestQueryCellUsesFloor(t *testing.T) {
	w := New(Config{CellSpan: 10})
	ctx := context.Background()
	for _, p := range []mgl64.Vec3{{0, 0, 0}, {9.99, 5, 9.99}, {-0.01, 0, 0}, {10, 0, -10}} {
		if _, err := w.CreateObject(ctx, world.Object{Position: p, Model: "m"}); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	cases := []struct {
		cx, cz int
		want   int
	}{
		{0, 0, 2},
		{-1, 0, 1},
		{1, -1, 1},
		{5, 5, 0},
	}
	for _, tc := range cases {
		got, err := w.QueryCell(ctx, tc.cx, tc.cz)
		if err != nil || len(got) != tc.want {
			t.Fatalf("cell (%d,%d): got %d objects (%v), want %d", tc.cx, tc.cz, len(got), err, tc.want)
		}
	}
}

func TestSubscribersSeeCommitOrder(t *testing.T) {
	w := New(Config{})
	var seen []world.Event
	cancel := w.Subscribe(func(ev world.Event) { seen = append(seen, ev) })
	ctx := context.Background()

	id, _ := w.CreateObject(ctx, world.Object{Model: "m"})
	if err := w.DeleteObject(ctx, id); err != nil {
		t.Fatalf("delete: %v", err)
	}
	w.Chat(world.Avatar{ID: "a"}, "hi")
	cancel()
	w.Chat(world.Avatar{ID: "a"}, "unseen")

	if len(seen) != 3 {
		t.Fatalf("expected 3 events, got %d", len(seen))
	}
	if c, ok := seen[0].(world.ObjectCreated); !ok || c.Object.ID != id {
		t.Fatalf("event 0: %#v", seen[0])
	}
	if d, ok := seen[1].(world.ObjectDeleted); !ok || d.Object.ID != id {
		t.Fatalf("event 1: %#v", seen[1])
	}
	if _, ok := seen[2].(world.Chat); !ok {
		t.Fatalf("event 2: %#v", seen[2])
	}
}

func TestNotFoundAndBadRequest(t *testing.T) {
	w := New(Config{})
	ctx := context.Background()
	if _, err := w.GetObject(ctx, 42); !errors.Is(err, world.ErrNotFound) {
		t.Fatalf("get: %v", err)
	}
	if err := w.DeleteObject(ctx, 42); !errors.Is(err, world.ErrNotFound) {
		t.Fatalf("delete: %v", err)
	}
	var pe *protocol.Error
	if _, err := w.CreateObject(ctx, world.Object{}); !errors.As(err, &pe) || pe.Code != protocol.ErrProtoBadRequest {
		t.Fatalf("create without model: %v", err)
	}
}

func TestLogin(t *testing.T) {
	open := New(Config{Name: "Parvenu"})
	if _, err := open.Login("anyone", "", "Parvenu"); err != nil {
		t.Fatalf("open world login: %v", err)
	}
	locked := New(Config{Name: "Parvenu", Accounts: map[string]string{"bot": "pw"}})
	if _, err := locked.Login("bot", "pw", "Parvenu"); err != nil {
		t.Fatalf("valid login: %v", err)
	}
	var pe *protocol.Error
	if _, err := locked.Login("bot", "bad", "Parvenu"); !errors.As(err, &pe) || pe.Code != protocol.ErrAuthFailed {
		t.Fatalf("bad password: %v", err)
	}
	if _, err := locked.Login("bot", "pw", "Other"); !errors.As(err, &pe) || pe.Code != protocol.ErrWorldNotFound {
		t.Fatalf("wrong world: %v", err)
	}
}

func TestSessionSpeaksAs(t *testing.T) {
	w := New(Config{})
	var got world.Chat
	w.Subscribe(func(ev world.Event) {
		if c, ok := ev.(world.Chat); ok {
			got = c
		}
	})
	s := w.Session(world.Avatar{ID: "bot", Name: "vblocks"})
	if err := s.Say(context.Background(), "Build mode."); err != nil {
		t.Fatalf("say: %v", err)
	}
	if got.Avatar.ID != "bot" || got.Text != "Build mode." {
		t.Fatalf("chat: %#v", got)
	}
	_ = s.MoveTo(context.Background(), mgl64.Vec3{1, 0, 1})
	if p, ok := w.AvatarPos("bot"); !ok || p != (mgl64.Vec3{1, 0, 1}) {
		t.Fatalf("pos: %v", p)
	}
}

func TestLoadConfig(t *testing.T) {
	cfg, err := LoadConfig("../../configs/devworld.yaml")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Name != "Parvenu" || cfg.CellSpan != 10 || cfg.Accounts["vblocks"] == "" {
		t.Fatalf("config: %+v", cfg)
	}
	if _, err := LoadConfig("does-not-exist.yaml"); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
