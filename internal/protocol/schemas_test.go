package protocol_test

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"vblocks.ai/internal/protocol"
)

func compile(t *testing.T, name string) *jsonschema.Schema {
	t.Helper()
	p := filepath.Join("..", "..", "schemas", name)
	s, err := jsonschema.Compile(p)
	if err != nil {
		t.Fatalf("compile %s: %v", name, err)
	}
	return s
}

func asAny(t *testing.T, v any) any {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return out
}

func TestSchemas_ValidateSamples(t *testing.T) {
	validate := func(s *jsonschema.Schema, v any) {
		t.Helper()
		if err := s.Validate(asAny(t, v)); err != nil {
			t.Fatalf("validate %T: %v", v, err)
		}
	}

	validate(compile(t, "hello.schema.json"), protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		Role:            protocol.RoleBot,
		BotName:         "vblocks",
		World:           "Parvenu",
		Auth:            &protocol.HelloAuth{User: "tom", Password: "secret"},
	})
	validate(compile(t, "welcome.schema.json"), protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		SessionID:       "S1",
		UserID:          "U1",
		World:           "Parvenu",
		CellSpan:        10,
	})

	req := compile(t, "req.schema.json")
	validate(req, protocol.RequestMsg{Type: protocol.TypeRequest, ProtocolVersion: protocol.Version, ReqID: "r1", Op: protocol.OpQueryCell, Cell: &[2]int{-1, 2}})
	validate(req, protocol.RequestMsg{Type: protocol.TypeRequest, ProtocolVersion: protocol.Version, ReqID: "r2", Op: protocol.OpCreateObject,
		Object: &protocol.ObjectWire{Pos: [3]float64{0.1, 0, 0}, Owner: "A1", Model: "p2cube0100", Tag: "inplay", Action: "create texture sw-brick16a"}})
	validate(req, protocol.RequestMsg{Type: protocol.TypeRequest, ProtocolVersion: protocol.Version, ReqID: "r3", Op: protocol.OpDeleteObject, ObjectID: 7})
	validate(req, protocol.RequestMsg{Type: protocol.TypeRequest, ProtocolVersion: protocol.Version, ReqID: "r4", Op: protocol.OpSay, Text: "hi"})
	validate(req, protocol.RequestMsg{Type: protocol.TypeRequest, ProtocolVersion: protocol.Version, ReqID: "r5", Op: protocol.OpMove, Pos: &[3]float64{0, 0, 0}})

	validate(compile(t, "result.schema.json"), protocol.ResultMsg{
		Type: protocol.TypeResult, ProtocolVersion: protocol.Version, ReqID: "r1", OK: true,
		Objects: []protocol.ObjectWire{{ID: 3, Pos: [3]float64{0, 0, 0}, Model: "p2cube0100", Tag: "inplay"}},
	})

	ev := compile(t, "event.schema.json")
	validate(ev, protocol.ClickMsg{Type: protocol.TypeClick, ProtocolVersion: protocol.Version, Avatar: protocol.AvatarRef{ID: "A1", Name: "ann"}, Hit: [3]float64{0.03, 0, 0.02}})
	validate(ev, protocol.ObjectEventMsg{Type: protocol.TypeObjectCreate, ProtocolVersion: protocol.Version, Object: protocol.ObjectWire{ID: 1, Model: "p2cube0100", Tag: "inplay"}})
	validate(ev, protocol.ChatMsg{Type: protocol.TypeChat, ProtocolVersion: protocol.Version, Avatar: protocol.AvatarRef{ID: "A1"}, Text: "/erase"})
}

func TestSchemas_RejectMissingFields(t *testing.T) {
	req := compile(t, "req.schema.json")
	var v any
	_ = json.Unmarshal([]byte(`{"type":"REQ","protocol_version":"1.0","req_id":"r1","op":"QUERY_CELL"}`), &v)
	if err := req.Validate(v); err == nil {
		t.Fatalf("QUERY_CELL without cell accepted")
	}
	_ = json.Unmarshal([]byte(`{"type":"REQ","protocol_version":"1.0","req_id":"r1","op":"FLY"}`), &v)
	if err := req.Validate(v); err == nil {
		t.Fatalf("unknown op accepted")
	}
}
