package livews

import (
	"encoding/json"

	"github.com/leviathanch/Google-Companion/domain/entities"
)

// setupMessage is the first frame on a new connection. It pins the
// session persona and tool surface before any audio flows.
type setupMessage struct {
	Setup entities.SessionSetup `json:"setup"`
}

// clientMessage is the envelope for everything sent after setup.
type clientMessage struct {
	RealtimeAudio string        `json:"realtimeAudio,omitempty"`
	ToolResponse  *toolResponse `json:"toolResponse,omitempty"`
	ClientText    *clientText   `json:"clientText,omitempty"`
}

type toolResponse struct {
	Responses []entities.ToolResponse `json:"responses"`
}

type clientText struct {
	Text string `json:"text"`
}

// serverMessage is the envelope for inbound frames. Exactly one field is
// set per frame; unknown frames keep their raw payload for logging.
type serverMessage struct {
	AudioPart     string          `json:"audioPart,omitempty"`
	Transcription *transcription  `json:"transcription,omitempty"`
	TurnComplete  bool            `json:"turnComplete,omitempty"`
	Interrupted   bool            `json:"interrupted,omitempty"`
	ToolCall      *toolCall       `json:"toolCall,omitempty"`
	Grounding     json.RawMessage `json:"groundingMetadata,omitempty"`
}

type transcription struct {
	Role entities.Role `json:"role"`
	Text string        `json:"text"`
}

type toolCall struct {
	Calls []entities.ToolCall `json:"calls"`
}
