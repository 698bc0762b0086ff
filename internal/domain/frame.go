package domain

// Outbound frame types rendered by a client.
const (
	FrameGlobe    = "globe"
	FrameList     = "list"
	FrameChat     = "chat"
	FrameRoster   = "roster"
	FrameRoom     = "room"
	FrameRedirect = "redirect"
	FrameError    = "error"
	FrameJoined   = "joined"
)

// Inbound action types sent by a client.
const (
	ActionSelectOpportunity = "select_opportunity"
	ActionBack              = "back"
	ActionSelectCountry     = "select_country"
	ActionPage              = "page"
	ActionChatDraft         = "chat_draft"
	ActionChatSend          = "chat_send"
	ActionBeginPlanning     = "begin_planning"
	ActionSetPublic         = "set_public"
	ActionSetDescription    = "set_description"
	ActionDeleteRoom        = "delete_room"
	ActionLeave             = "leave"
)

type Frame struct {
	Type    string `json:"type"`
	Room    string `json:"room,omitempty"`
	Payload any    `json:"payload,omitempty"`
}

type Action struct {
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload,omitempty"`
}
