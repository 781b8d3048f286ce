package models

// Roles understood by the completion service.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one role-tagged entry of a conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Transcript is the ordered conversation so far. It is treated as a value:
// callers receive a new Transcript instead of having theirs mutated.
type Transcript []Message

// With returns a copy of the transcript with msgs appended.
func (t Transcript) With(msgs ...Message) Transcript {
	out := make(Transcript, 0, len(t)+len(msgs))
	out = append(out, t...)
	return append(out, msgs...)
}
