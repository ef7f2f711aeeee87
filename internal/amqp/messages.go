package amqp

import (
	"encoding/json"
	"errors"
	"time"

	"moneymind/internal/events"
)

// ChangeMessage carries one committed change between instances. Origin names
// the publishing instance so it can skip its own messages.
type ChangeMessage struct {
	Change    events.Change `json:"change"`
	Origin    string        `json:"origin"`
	Timestamp time.Time     `json:"timestamp"`
}

func NewChangeMessage(c events.Change, origin string) *ChangeMessage {
	return &ChangeMessage{Change: c, Origin: origin, Timestamp: time.Now().UTC()}
}

// ToJSON converts the message to JSON bytes
func (m *ChangeMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ChangeMessageFromJSON decodes a message and rejects ones without a user.
func ChangeMessageFromJSON(data []byte) (*ChangeMessage, error) {
	var msg ChangeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Change.UserID == "" {
		return nil, errors.New("change message without user id")
	}
	return &msg, nil
}
