package protocol

// HELLO (client -> server)
type HelloMsg struct {
	Type            string     `json:"type"`
	ProtocolVersion string     `json:"protocol_version"`
	Role            string     `json:"role,omitempty"`
	BotName         string     `json:"bot_name"`
	World           string     `json:"world"`
	Auth            *HelloAuth `json:"auth,omitempty"`
}

type HelloAuth struct {
	User     string `json:"user"`
	Password string `json:"password"`
}

// WELCOME (server -> client)
type WelcomeMsg struct {
	Type            string  `json:"type"`
	ProtocolVersion string  `json:"protocol_version"`
	SessionID       string  `json:"session_id"`
	UserID          string  `json:"user_id"`
	World           string  `json:"world"`
	CellSpan        float64 `json:"cell_span"`
}

type ObjectWire struct {
	ID     int64      `json:"id,omitempty"`
	Pos    [3]float64 `json:"pos"`
	Owner  string     `json:"owner,omitempty"`
	Model  string     `json:"model"`
	Tag    string     `json:"tag,omitempty"`
	Action string     `json:"action,omitempty"`
}

type AvatarRef struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// REQ (client -> server). Which fields are set depends on Op.
type RequestMsg struct {
	Type            string      `json:"type"`
	ProtocolVersion string      `json:"protocol_version"`
	ReqID           string      `json:"req_id"`
	Op              string      `json:"op"`
	Cell            *[2]int     `json:"cell,omitempty"`
	Object          *ObjectWire `json:"object,omitempty"`
	ObjectID        int64       `json:"object_id,omitempty"`
	Text            string      `json:"text,omitempty"`
	Pos             *[3]float64 `json:"pos,omitempty"`
}

// RESULT (server -> client): the answer to exactly one REQ.
type ResultMsg struct {
	Type            string       `json:"type"`
	ProtocolVersion string       `json:"protocol_version"`
	ReqID           string       `json:"req_id"`
	OK              bool         `json:"ok"`
	Code            string       `json:"code,omitempty"`
	Message         string       `json:"message,omitempty"`
	ObjectID        int64        `json:"object_id,omitempty"`
	Object          *ObjectWire  `json:"object,omitempty"`
	Objects         []ObjectWire `json:"objects,omitempty"`
}

// Err returns nil for a successful result.
func (r ResultMsg) Err() error {
	if r.OK {
		return nil
	}
	code := r.Code
	if code == "" {
		code = ErrInternal
	}
	return &Error{Code: code, Message: r.Message}
}

// CLICK (server -> bot; avatar -> server with Avatar left empty)
type ClickMsg struct {
	Type            string     `json:"type"`
	ProtocolVersion string     `json:"protocol_version"`
	Avatar          AvatarRef  `json:"avatar"`
	ObjectID        int64      `json:"object_id,omitempty"`
	Hit             [3]float64 `json:"hit"`
}

// OBJECT_CREATE / OBJECT_DELETE (server -> client)
type ObjectEventMsg struct {
	Type            string     `json:"type"`
	ProtocolVersion string     `json:"protocol_version"`
	Object          ObjectWire `json:"object"`
}

// CHAT (server -> client; avatar -> server with Avatar left empty)
type ChatMsg struct {
	Type            string    `json:"type"`
	ProtocolVersion string    `json:"protocol_version"`
	Avatar          AvatarRef `json:"avatar"`
	Text            string    `json:"text"`
}
