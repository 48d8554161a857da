// Package extract implements the stream extraction bridge.
//
// When the catalog only supplies an embed page URL, the bridge loads the page
// inside an isolated sandbox, watches its outbound requests and its DOM for a
// playable stream URL, and reports progress to the session controller over a
// one-way message stream.
package extract

import "encoding/json"

// Step identifies a phase of the extraction lifecycle reported to the controller.
type Step string

const (
	StepConnecting Step = "connecting"
	StepExtracting Step = "extracting"
	StepPreparing  Step = "preparing"
	StepReady      Step = "ready"
)

// Message types carried on the bridge-to-controller channel.
const (
	TypeStepUpdate  = "step_update"
	TypeStreamFound = "stream_found"
)

// Message is one JSON-encoded notification emitted by the bridge.
type Message struct {
	Type string `json:"type"`
	Step Step   `json:"step,omitempty"`
	URL  string `json:"url,omitempty"`
}

// StepUpdate builds a step notification message.
func StepUpdate(step Step) Message {
	return Message{Type: TypeStepUpdate, Step: step}
}

// StreamFound builds a discovery result message.
func StreamFound(url string) Message {
	return Message{Type: TypeStreamFound, URL: url}
}

// Encode renders the message in its wire form.
func (m Message) Encode() []byte {
	b, _ := json.Marshal(m)
	return b
}

// Decode parses a wire-form message.
func Decode(data []byte) (Message, error) {
	var m Message
	err := json.Unmarshal(data, &m)
	return m, err
}
