package amqp

import (
	"encoding/json"
	"time"
)

// ItemChangeMessage signals that a user's budget items changed and every
// live feed for that user should reload. It carries only the user id; the
// consumer fetches the fresh snapshot from the store.
type ItemChangeMessage struct {
	UserID    string    `json:"user_id"`
	Timestamp time.Time `json:"timestamp"`
}

func NewItemChangeMessage(userID string) *ItemChangeMessage {
	return &ItemChangeMessage{
		UserID:    userID,
		Timestamp: time.Now(),
	}
}

func (m *ItemChangeMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ItemChangeMessageFromJSON(data []byte) (*ItemChangeMessage, error) {
	var msg ItemChangeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
