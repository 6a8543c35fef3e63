package protocol

import "encoding/json"

const Version = "1.0"

// Message types.
const (
	TypeHello        = "HELLO"
	TypeWelcome      = "WELCOME"
	TypeRequest      = "REQ"
	TypeResult       = "RESULT"
	TypeClick        = "CLICK"
	TypeObjectCreate = "OBJECT_CREATE"
	TypeObjectDelete = "OBJECT_DELETE"
	TypeChat         = "CHAT"
)

// Request operations.
const (
	OpQueryCell    = "QUERY_CELL"
	OpCreateObject = "CREATE_OBJECT"
	OpDeleteObject = "DELETE_OBJECT"
	OpGetObject    = "GET_OBJECT"
	OpSay          = "SAY"
	OpMove         = "MOVE"
)

// Session roles. Bots build; avatars click and chat.
const (
	RoleBot    = "bot"
	RoleAvatar = "avatar"
)

// BaseMessage lets us route unknown JSON messages by type.
type BaseMessage struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version,omitempty"`
}

func DecodeBase(b []byte) (BaseMessage, error) {
	var m BaseMessage
	err := json.Unmarshal(b, &m)
	return m, err
}

func IsSupportedVersion(v string) bool { return v == Version }
