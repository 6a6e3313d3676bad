package entities

import "time"

// Role identifies the speaker of a transcript message
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// TranscriptMessage is one finalized utterance, produced when a turn
// completes. Interrupted utterances never become messages.
type TranscriptMessage struct {
	ID        string    `json:"id" bson:"_id"`
	Role      Role      `json:"role" bson:"role"`
	Text      string    `json:"text" bson:"text"`
	Timestamp time.Time `json:"timestamp" bson:"timestamp"`
}
