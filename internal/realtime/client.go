package realtime

import (
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/websocket"
)

const defaultEndpoint = "wss://api.openai.com/v1/realtime"

// Dialer opens authenticated realtime connections for a configured model.
type Dialer struct {
	APIKey   string
	Model    string
	Endpoint string // defaults to the OpenAI realtime endpoint
}

// Dial opens the websocket connection, scoped to the model and carrying the
// bearer credential plus the realtime beta header.
func (d Dialer) Dial() (*websocket.Conn, error) {
	if d.APIKey == "" {
		return nil, fmt.Errorf("realtime: API key is empty")
	}
	endpoint := d.Endpoint
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	wsURL := fmt.Sprintf("%s?model=%s", endpoint, url.QueryEscape(d.Model))

	headers := http.Header{}
	headers.Set("Authorization", "Bearer "+d.APIKey)
	headers.Set("OpenAI-Beta", "realtime=v1")

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, resp, err := dialer.Dial(wsURL, headers)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("realtime connect failed with status %d: %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("realtime connect failed: %w", err)
	}
	return conn, nil
}
