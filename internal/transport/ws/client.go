package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"vblocks.ai/internal/logging"
	"vblocks.ai/internal/protocol"
	"vblocks.ai/internal/world"
)

var (
	ErrClosed      = errors.New("ws: connection closed")
	ErrNotLoggedIn = errors.New("ws: not logged in")
)

const (
	writeWait  = 5 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait / 2
)

type LoginConfig struct {
	User     string
	Password string
	BotName  string
	World    string
	// Role defaults to protocol.RoleBot.
	Role string
}

// Client is a bot's connection to a world server. After Login it satisfies world.Session
// and delivers world events on Events in the order the server sent them.
type Client struct {
	conn *websocket.Conn
	log  logrus.FieldLogger

	writeMu sync.Mutex

	mu      sync.Mutex
	pending map[string]chan protocol.ResultMsg
	queue   []world.Event
	err     error

	loggedIn  atomic.Bool
	welcome   protocol.WelcomeMsg
	wake      chan struct{}
	events    chan world.Event
	done      chan struct{}
	closeOnce sync.Once
}

func Dial(ctx context.Context, url string, log logrus.FieldLogger) (*Client, error) {
	if log == nil {
		log = logging.Nop()
	}
	d := websocket.Dialer{HandshakeTimeout: 5 * time.Second}
	conn, resp, err := d.DialContext(ctx, url, http.Header{})
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	return &Client{
		conn:    conn,
		log:     log,
		pending: map[string]chan protocol.ResultMsg{},
		wake:    make(chan struct{}, 1),
		events:  make(chan world.Event),
		done:    make(chan struct{}),
	}, nil
}

// Login sends HELLO and waits for WELCOME. A refused login closes the client.
func (c *Client) Login(ctx context.Context, cfg LoginConfig) (protocol.WelcomeMsg, error) {
	if c.loggedIn.Load() {
		return c.welcome, nil
	}
	hello := protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		Role:            cfg.Role,
		BotName:         cfg.BotName,
		World:           cfg.World,
	}
	if hello.Role == "" {
		hello.Role = protocol.RoleBot
	}
	if cfg.User != "" {
		hello.Auth = &protocol.HelloAuth{User: cfg.User, Password: cfg.Password}
	}
	if err := c.writeJSON(hello); err != nil {
		c.Close()
		return protocol.WelcomeMsg{}, err
	}

	deadline := time.Now().Add(10 * time.Second)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	for {
		_ = c.conn.SetReadDeadline(deadline)
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			c.Close()
			return protocol.WelcomeMsg{}, fmt.Errorf("login: %w", err)
		}
		base, err := protocol.DecodeBase(msg)
		if err != nil {
			continue
		}
		switch base.Type {
		case protocol.TypeWelcome:
			var w protocol.WelcomeMsg
			if err := json.Unmarshal(msg, &w); err != nil {
				c.Close()
				return protocol.WelcomeMsg{}, fmt.Errorf("login: bad WELCOME: %w", err)
			}
			if !protocol.IsSupportedVersion(w.ProtocolVersion) {
				c.Close()
				return protocol.WelcomeMsg{}, fmt.Errorf("login: unsupported protocol_version %q", w.ProtocolVersion)
			}
			c.welcome = w
			c.loggedIn.Store(true)
			go c.readLoop()
			go c.forward()
			go c.pinger()
			return w, nil
		case protocol.TypeResult:
			var r protocol.ResultMsg
			if err := json.Unmarshal(msg, &r); err != nil {
				continue
			}
			if err := r.Err(); err != nil {
				c.Close()
				return protocol.WelcomeMsg{}, fmt.Errorf("login: %w", err)
			}
		}
	}
}

func (c *Client) Welcome() protocol.WelcomeMsg { return c.welcome }

// Events is closed once the connection is gone. Events still queued at that point are dropped.
func (c *Client) Events() <-chan world.Event { return c.events }

// Err reports why the connection ended, or nil while it is up.
func (c *Client) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

func (c *Client) Close() error {
	c.shutdown(ErrClosed)
	return nil
}

func (c *Client) shutdown(cause error) {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.err = cause
		c.mu.Unlock()
		c.writeMu.Lock()
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		c.writeMu.Unlock()
		_ = c.conn.Close()
		close(c.done)
		if !c.loggedIn.Load() {
			close(c.events)
		}
	})
}

func (c *Client) readLoop() {
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
			default:
				c.log.WithError(err).Warn("world connection lost")
			}
			c.shutdown(fmt.Errorf("%w: %v", ErrClosed, err))
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		base, err := protocol.DecodeBase(msg)
		if err != nil {
			c.log.WithError(err).Debug("dropping undecodable message")
			continue
		}
		if !protocol.IsSupportedVersion(base.ProtocolVersion) {
			continue
		}
		switch base.Type {
		case protocol.TypeResult:
			var r protocol.ResultMsg
			if err := json.Unmarshal(msg, &r); err != nil {
				continue
			}
			c.mu.Lock()
			ch := c.pending[r.ReqID]
			delete(c.pending, r.ReqID)
			c.mu.Unlock()
			if ch != nil {
				ch <- r
			}
		default:
			ev, err := decodeEvent(base.Type, msg)
			if err != nil {
				c.log.WithError(err).WithField("type", base.Type).Debug("dropping message")
				continue
			}
			c.mu.Lock()
			c.queue = append(c.queue, ev)
			c.mu.Unlock()
			select {
			case c.wake <- struct{}{}:
			default:
			}
		}
	}
}

// forward hands queued events to Events so a slow consumer never stalls result routing.
func (c *Client) forward() {
	defer close(c.events)
	for {
		c.mu.Lock()
		batch := c.queue
		c.queue = nil
		c.mu.Unlock()
		for _, ev := range batch {
			select {
			case c.events <- ev:
			case <-c.done:
				return
			}
		}
		if len(batch) > 0 {
			continue
		}
		select {
		case <-c.wake:
		case <-c.done:
			return
		}
	}
}

func (c *Client) pinger() {
	t := time.NewTicker(pingPeriod)
	defer t.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-t.C:
			c.writeMu.Lock()
			err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
			c.writeMu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

func decodeEvent(typ string, msg []byte) (world.Event, error) {
	switch typ {
	case protocol.TypeClick:
		var m protocol.ClickMsg
		if err := json.Unmarshal(msg, &m); err != nil {
			return nil, err
		}
		return world.Click{
			Avatar:   world.Avatar{ID: m.Avatar.ID, Name: m.Avatar.Name},
			ObjectID: world.ObjectID(m.ObjectID),
			Hit:      mgl64.Vec3(m.Hit),
		}, nil
	case protocol.TypeObjectCreate, protocol.TypeObjectDelete:
		var m protocol.ObjectEventMsg
		if err := json.Unmarshal(msg, &m); err != nil {
			return nil, err
		}
		obj := protocol.ObjectFromWire(m.Object)
		if typ == protocol.TypeObjectCreate {
			return world.ObjectCreated{Object: obj}, nil
		}
		return world.ObjectDeleted{Object: obj}, nil
	case protocol.TypeChat:
		var m protocol.ChatMsg
		if err := json.Unmarshal(msg, &m); err != nil {
			return nil, err
		}
		return world.Chat{Avatar: world.Avatar{ID: m.Avatar.ID, Name: m.Avatar.Name}, Text: m.Text}, nil
	default:
		return nil, fmt.Errorf("unexpected message type %q", typ)
	}
}

func (c *Client) writeJSON(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, b)
}

// call sends one REQ and waits for its RESULT.
func (c *Client) call(ctx context.Context, req protocol.RequestMsg) (protocol.ResultMsg, error) {
	if !c.loggedIn.Load() {
		return protocol.ResultMsg{}, ErrNotLoggedIn
	}
	req.Type = protocol.TypeRequest
	req.ProtocolVersion = protocol.Version
	req.ReqID = uuid.NewString()

	ch := make(chan protocol.ResultMsg, 1)
	c.mu.Lock()
	if c.err != nil {
		err := c.err
		c.mu.Unlock()
		return protocol.ResultMsg{}, err
	}
	c.pending[req.ReqID] = ch
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.pending, req.ReqID)
		c.mu.Unlock()
	}()

	if err := c.writeJSON(req); err != nil {
		return protocol.ResultMsg{}, fmt.Errorf("%s: %w", req.Op, err)
	}
	select {
	case r := <-ch:
		if err := r.Err(); err != nil {
			return r, mapError(req.Op, err)
		}
		return r, nil
	case <-ctx.Done():
		return protocol.ResultMsg{}, fmt.Errorf("%s: %w", req.Op, ctx.Err())
	case <-c.done:
		return protocol.ResultMsg{}, fmt.Errorf("%s: %w", req.Op, c.Err())
	}
}

func mapError(op string, err error) error {
	var pe *protocol.Error
	if errors.As(err, &pe) && pe.Code == protocol.ErrNotFound {
		return fmt.Errorf("%s: %w (%v)", op, world.ErrNotFound, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func (c *Client) QueryCell(ctx context.Context, cx, cz int) ([]world.Object, error) {
	r, err := c.call(ctx, protocol.RequestMsg{Op: protocol.OpQueryCell, Cell: &[2]int{cx, cz}})
	if err != nil {
		return nil, err
	}
	out := make([]world.Object, 0, len(r.Objects))
	for _, o := range r.Objects {
		out = append(out, protocol.ObjectFromWire(o))
	}
	return out, nil
}

func (c *Client) CreateObject(ctx context.Context, obj world.Object) (world.ObjectID, error) {
	w := protocol.ObjectToWire(obj)
	r, err := c.call(ctx, protocol.RequestMsg{Op: protocol.OpCreateObject, Object: &w})
	if err != nil {
		return 0, err
	}
	return world.ObjectID(r.ObjectID), nil
}

func (c *Client) DeleteObject(ctx context.Context, id world.ObjectID) error {
	_, err := c.call(ctx, protocol.RequestMsg{Op: protocol.OpDeleteObject, ObjectID: int64(id)})
	return err
}

func (c *Client) GetObject(ctx context.Context, id world.ObjectID) (world.Object, error) {
	r, err := c.call(ctx, protocol.RequestMsg{Op: protocol.OpGetObject, ObjectID: int64(id)})
	if err != nil {
		return world.Object{}, err
	}
	if r.Object == nil {
		return world.Object{}, fmt.Errorf("%s: %w", protocol.OpGetObject, world.ErrNotFound)
	}
	return protocol.ObjectFromWire(*r.Object), nil
}

func (c *Client) Say(ctx context.Context, text string) error {
	_, err := c.call(ctx, protocol.RequestMsg{Op: protocol.OpSay, Text: text})
	return err
}

func (c *Client) MoveTo(ctx context.Context, pos mgl64.Vec3) error {
	p := [3]float64(pos)
	_, err := c.call(ctx, protocol.RequestMsg{Op: protocol.OpMove, Pos: &p})
	return err
}

// Click sends an avatar click. The server fills in who clicked.
func (c *Client) Click(id world.ObjectID, hit mgl64.Vec3) error {
	if !c.loggedIn.Load() {
		return ErrNotLoggedIn
	}
	return c.writeJSON(protocol.ClickMsg{
		Type:            protocol.TypeClick,
		ProtocolVersion: protocol.Version,
		ObjectID:        int64(id),
		Hit:             [3]float64(hit),
	})
}

// Chat sends an avatar chat line.
func (c *Client) Chat(text string) error {
	if !c.loggedIn.Load() {
		return ErrNotLoggedIn
	}
	return c.writeJSON(protocol.ChatMsg{Type: protocol.TypeChat, ProtocolVersion: protocol.Version, Text: text})
}

var _ world.Session = (*Client)(nil)
