package hub

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// The hub speaks the JSON hub protocol: one JSON document per frame,
// frames terminated by the 0x1E record separator. A textual handshake
// runs first on the freshly opened socket.

const recordSeparator byte = 0x1e

// Hub message types used on this connection.
const (
	typeInvocation = 1
	typePing       = 6
	typeClose      = 7
)

// receiveEvent is the only invocation target the backend pushes.
const receiveEvent = "ReceiveNotification"

type handshakeRequest struct {
	Protocol string `json:"protocol"`
	Version  int    `json:"version"`
}

type handshakeResponse struct {
	Error string `json:"error,omitempty"`
}

type hubMessage struct {
	Type           int               `json:"type"`
	Target         string            `json:"target,omitempty"`
	Arguments      []json.RawMessage `json:"arguments,omitempty"`
	Error          string            `json:"error,omitempty"`
	AllowReconnect bool              `json:"allowReconnect,omitempty"`
}

func encodeFrame(v interface{}) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return append(b, recordSeparator), nil
}

// splitFrames slices a websocket message into its record-separated JSON
// documents. A trailing fragment without a separator is rejected: the
// hub always terminates frames.
func splitFrames(data []byte) ([][]byte, error) {
	var frames [][]byte
	for len(data) > 0 {
		i := bytes.IndexByte(data, recordSeparator)
		if i < 0 {
			return nil, fmt.Errorf("unterminated hub frame (%d bytes)", len(data))
		}
		if i > 0 {
			frames = append(frames, data[:i])
		}
		data = data[i+1:]
	}
	return frames, nil
}

func parseHandshakeResponse(frame []byte) error {
	var resp handshakeResponse
	if err := json.Unmarshal(frame, &resp); err != nil {
		return fmt.Errorf("handshake response: %w", err)
	}
	if resp.Error != "" {
		return fmt.Errorf("handshake rejected: %s", resp.Error)
	}
	return nil
}
