package models

// Conversation addresses a message stream: either the direct thread with
// one peer user, or a group. For direct threads the ID is the peer's user
// ID; which messages belong to the thread then depends on the viewer.
type Conversation struct {
	Type ReceiverType `json:"type"`
	ID   string       `json:"id"`
}

func (c Conversation) IsGroup() bool {
	return c.Type == ReceiverTypeGroup
}
