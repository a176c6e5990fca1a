package hub

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

type availableTransport struct {
	Transport       string   `json:"transport"`
	TransferFormats []string `json:"transferFormats"`
}

type negotiateResponse struct {
	ConnectionID        string               `json:"connectionId"`
	ConnectionToken     string               `json:"connectionToken"`
	NegotiateVersion    int                  `json:"negotiateVersion"`
	AvailableTransports []availableTransport `json:"availableTransports"`
}

// negotiate runs the connection-establishment handshake with the hub
// endpoint: the server hands back a connection token and the transports
// it is willing to speak.
func negotiate(ctx context.Context, client *http.Client, hubURL, token string) (*negotiateResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, hubURL+"/negotiate?negotiateVersion=1", nil)
	if err != nil {
		return nil, err
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("negotiate: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("negotiate: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("negotiate: unexpected status %d", resp.StatusCode)
	}
	var out negotiateResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("negotiate: %w", err)
	}
	if out.ConnectionToken == "" {
		out.ConnectionToken = out.ConnectionID
	}
	return &out, nil
}

// supportsWebsockets reports whether the negotiated transport list
// includes websockets; text transfer is all this client speaks.
func (n *negotiateResponse) supportsWebsockets() bool {
	if len(n.AvailableTransports) == 0 {
		return true
	}
	for _, t := range n.AvailableTransports {
		if t.Transport == "WebSockets" {
			return true
		}
	}
	return false
}
