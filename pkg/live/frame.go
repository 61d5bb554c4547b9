package live

import "encoding/json"

// Frame types.
const (
	// FrameValue carries the current value of a binding to the client.
	FrameValue = "value"

	// FrameSet asks the server to write a value into a writable binding.
	FrameSet = "set"

	// FrameError reports a rejected client frame.
	FrameError = "error"
)

// Frame is the JSON message exchanged over the socket.
type Frame struct {
	Type  string          `json:"type"`
	Name  string          `json:"name,omitempty"`
	Value json.RawMessage `json:"value,omitempty"`
	Error string          `json:"error,omitempty"`
}

func valueFrame(name string, v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Frame{Type: FrameValue, Name: name, Value: raw})
}

func errorFrame(name, msg string) []byte {
	b, _ := json.Marshal(Frame{Type: FrameError, Name: name, Error: msg})
	return b
}
