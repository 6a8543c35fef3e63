package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"vblocks.ai/internal/devworld"
	"vblocks.ai/internal/logging"
	"vblocks.ai/internal/protocol"
	"vblocks.ai/internal/world"
)

// Server exposes a devworld.World over the wire protocol. Bots issue requests; avatars send
// clicks and chat. Every session receives every world event.
type Server struct {
	world *devworld.World
	log   logrus.FieldLogger

	upgrader websocket.Upgrader
}

func NewServer(w *devworld.World, log logrus.FieldLogger) *Server {
	if log == nil {
		log = logging.Nop()
	}
	return &Server{
		world: w,
		log:   log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 16 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

type conn struct {
	avatar world.Avatar
	role   string
	out    chan []byte
	ctx    context.Context
	cancel context.CancelFunc
	log    logrus.FieldLogger
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		wsConn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer wsConn.Close()

		c := s.handshake(wsConn)
		if c == nil {
			return
		}
		defer c.cancel()

		unsubscribe := s.world.Subscribe(func(ev world.Event) {
			b, err := json.Marshal(protocol.EventToWire(ev))
			if err != nil {
				return
			}
			select {
			case c.out <- b:
			default:
				c.log.Warn("outbound queue full, dropping session")
				c.cancel()
			}
		})
		defer unsubscribe()

		wsConn.SetPingHandler(func(data string) error {
			_ = wsConn.SetReadDeadline(time.Now().Add(pongWait))
			return wsConn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(writeWait))
		})

		// Writer goroutine.
		go func() {
			for {
				select {
				case <-c.ctx.Done():
					_ = wsConn.Close()
					return
				case b := <-c.out:
					_ = wsConn.SetWriteDeadline(time.Now().Add(writeWait))
					if err := wsConn.WriteMessage(websocket.TextMessage, b); err != nil {
						c.cancel()
						return
					}
				}
			}
		}()

		// Reader loop.
		for {
			_ = wsConn.SetReadDeadline(time.Now().Add(pongWait))
			_, msg, err := wsConn.ReadMessage()
			if err != nil {
				break
			}
			s.handle(c, msg)
		}
		c.log.Info("session closed")
	}
}

func (s *Server) handshake(wsConn *websocket.Conn) *conn {
	_ = wsConn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := wsConn.ReadMessage()
	if err != nil {
		return nil
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		closePolicy(wsConn, "expected HELLO")
		return nil
	}
	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		closePolicy(wsConn, "bad HELLO")
		return nil
	}
	if !protocol.IsSupportedVersion(hello.ProtocolVersion) {
		closePolicy(wsConn, "bad protocol_version")
		return nil
	}

	user, password := "", ""
	if hello.Auth != nil {
		user, password = strings.TrimSpace(hello.Auth.User), hello.Auth.Password
	}
	sessionID, err := s.world.Login(user, password, hello.World)
	if err != nil {
		res := protocol.ResultMsg{Type: protocol.TypeResult, ProtocolVersion: protocol.Version, ReqID: "HELLO"}
		fillError(&res, err)
		_ = writeJSON(wsConn, res)
		closePolicy(wsConn, res.Code)
		s.log.WithField("user", user).WithError(err).Warn("login refused")
		return nil
	}

	name := strings.TrimSpace(hello.BotName)
	if name == "" {
		name = "guest"
	}
	id := user
	if id == "" {
		id = name + "-" + sessionID[:8]
	}
	role := hello.Role
	if role == "" {
		role = protocol.RoleBot
	}

	welcome := protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		SessionID:       sessionID,
		UserID:          id,
		World:           s.world.Name(),
		CellSpan:        s.world.CellSpan(),
	}
	if err := writeJSON(wsConn, welcome); err != nil {
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &conn{
		avatar: world.Avatar{ID: id, Name: name},
		role:   role,
		out:    make(chan []byte, 1024),
		ctx:    ctx,
		cancel: cancel,
		log:    s.log.WithFields(logrus.Fields{"session": sessionID, "user": id, "role": role}),
	}
	c.log.Info("session opened")
	return c
}

func (s *Server) handle(c *conn, msg []byte) {
	base, err := protocol.DecodeBase(msg)
	if err != nil || !protocol.IsSupportedVersion(base.ProtocolVersion) {
		return
	}
	switch base.Type {
	case protocol.TypeRequest:
		var req protocol.RequestMsg
		if err := json.Unmarshal(msg, &req); err != nil {
			return
		}
		res := s.serve(c, req)
		b, err := json.Marshal(res)
		if err != nil {
			return
		}
		select {
		case c.out <- b:
		case <-c.ctx.Done():
		}
	case protocol.TypeClick:
		var m protocol.ClickMsg
		if err := json.Unmarshal(msg, &m); err != nil {
			return
		}
		s.world.Click(c.avatar, world.ObjectID(m.ObjectID), mgl64.Vec3(m.Hit))
	case protocol.TypeChat:
		var m protocol.ChatMsg
		if err := json.Unmarshal(msg, &m); err != nil {
			return
		}
		s.world.Chat(c.avatar, m.Text)
	}
}

func (s *Server) serve(c *conn, req protocol.RequestMsg) protocol.ResultMsg {
	res := protocol.ResultMsg{Type: protocol.TypeResult, ProtocolVersion: protocol.Version, ReqID: req.ReqID, OK: true}
	ctx := c.ctx
	var err error
	switch req.Op {
	case protocol.OpQueryCell:
		if req.Cell == nil {
			err = badRequest("missing cell")
			break
		}
		var objs []world.Object
		objs, err = s.world.QueryCell(ctx, req.Cell[0], req.Cell[1])
		for _, o := range objs {
			res.Objects = append(res.Objects, protocol.ObjectToWire(o))
		}
	case protocol.OpCreateObject:
		if req.Object == nil {
			err = badRequest("missing object")
			break
		}
		var id world.ObjectID
		id, err = s.world.CreateObject(ctx, protocol.ObjectFromWire(*req.Object))
		res.ObjectID = int64(id)
	case protocol.OpDeleteObject:
		err = s.world.DeleteObject(ctx, world.ObjectID(req.ObjectID))
		res.ObjectID = req.ObjectID
	case protocol.OpGetObject:
		var o world.Object
		o, err = s.world.GetObject(ctx, world.ObjectID(req.ObjectID))
		if err == nil {
			w := protocol.ObjectToWire(o)
			res.Object = &w
		}
	case protocol.OpSay:
		s.world.Chat(c.avatar, req.Text)
	case protocol.OpMove:
		if req.Pos == nil {
			err = badRequest("missing pos")
			break
		}
		s.world.Move(c.avatar.ID, mgl64.Vec3(*req.Pos))
	default:
		err = badRequest("unknown op " + req.Op)
	}
	if err != nil {
		fillError(&res, err)
	}
	return res
}

func badRequest(msg string) error {
	return &protocol.Error{Code: protocol.ErrProtoBadRequest, Message: msg}
}

func fillError(res *protocol.ResultMsg, err error) {
	res.OK = false
	res.Message = err.Error()
	var pe *protocol.Error
	switch {
	case errors.As(err, &pe):
		res.Code = pe.Code
		res.Message = pe.Message
	case errors.Is(err, world.ErrNotFound):
		res.Code = protocol.ErrNotFound
	default:
		res.Code = protocol.ErrInternal
	}
}

func closePolicy(wsConn *websocket.Conn, reason string) {
	_ = wsConn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason), time.Now().Add(time.Second))
}

func writeJSON(wsConn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = wsConn.SetWriteDeadline(time.Now().Add(writeWait))
	return wsConn.WriteMessage(websocket.TextMessage, b)
}
