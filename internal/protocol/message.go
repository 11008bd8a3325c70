package protocol

// ChatMessage is one entry in a webchat conversation.
//
// Pending marks a message created locally that has not been confirmed by the
// server echo yet. ID is zero until the server assigns one.
type ChatMessage struct {
	ID        int64  `json:"id,omitempty"`
	Text      string `json:"text"`
	Sender    string `json:"sender"`
	IsAgent   bool   `json:"isAgent"`
	Timestamp string `json:"timestamp,omitempty"`
	Pending   bool   `json:"pending,omitempty"`
}
