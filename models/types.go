package models

// Credentials identifies an account. Password is empty for the
// operations that do not check it (Logout).
type Credentials struct {
	Username string
	Password string
}

// ServerResponse is the envelope every account and message call answers
// with. Domain failures (duplicate username, bad password, ...) come back
// as Error=true with a readable Message, never as an RPC fault.
type ServerResponse struct {
	Message string
	Error   bool
}

type SearchTerm struct {
	Pattern string
}

// AccountList carries the matching usernames, space-joined.
type AccountList struct {
	Usernames string
}

type MessageInfo struct {
	Source      string
	Destination string
	Text        string
}

type ListenArguments struct {
	Username string
}

// MessageBatch is one long-poll result of FetchMessagesRPC.
// Active=false tells the listener the account logged out and the
// stream is over.
type MessageBatch struct {
	Messages []MessageInfo
	Active   bool
}

// NoParam is the empty heartbeat payload.
type NoParam struct {
}
