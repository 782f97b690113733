package bot

const (
	TypeMessage = "message"
	TypeTyping  = "typing"
)

// Activity is a single chat message or event exchanged with the channel
// service.
type Activity struct {
	Type         string        `json:"type"`
	ID           string        `json:"id,omitempty"`
	Text         string        `json:"text,omitempty"`
	From         *Account      `json:"from,omitempty"`
	Recipient    *Account      `json:"recipient,omitempty"`
	Conversation *Conversation `json:"conversation,omitempty"`
	ServiceURL   string        `json:"serviceUrl,omitempty"`
	ReplyToID    string        `json:"replyToId,omitempty"`
}

type Account struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

type Conversation struct {
	ID string `json:"id"`
}

// IsMessage reports whether the activity is a dispatchable message, i.e. a
// message-typed activity bound to a conversation.
func (a *Activity) IsMessage() bool {
	return a != nil && a.Type == TypeMessage && a.Conversation != nil && a.Conversation.ID != ""
}

// TypingActivity returns the typing indicator sent ahead of slower replies.
func TypingActivity() *Activity {
	return &Activity{Type: TypeTyping}
}
