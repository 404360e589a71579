package models

// ChatMessage is one entry of a conversation between the current member and
// a partner.
type ChatMessage struct {
	ID        string `json:"id"`
	SenderID  string `json:"senderId"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"`
	Read      bool   `json:"read"`
}
