package client

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	http2 "golang.org/x/net/http2"

	"screencast/internal/adapters/decoders/control"
	"screencast/internal/domain"
)

// Client talks to the REST side of a screencast server.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func New(baseURL string) *Client {
	return &Client{BaseURL: strings.TrimRight(baseURL, "/"), HTTP: &http.Client{Transport: newTransport(), Timeout: 10 * time.Second}}
}

func newTransport() *http.Transport {
	tr := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	// h2 for https servers; plain http stays on HTTP/1.1
	_ = http2.ConfigureTransport(tr)
	return tr
}

func (c *Client) ListSessions(ctx context.Context, limit, offset int) ([]domain.Session, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/api/sessions?limit=%d&offset=%d", c.BaseURL, limit, offset), nil)
	if err != nil {
		return nil, 0, err
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, 0, fmt.Errorf("list sessions: %s", resp.Status)
	}
	var out struct {
		Items []domain.Session `json:"items"`
		Total int              `json:"total"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, 0, err
	}
	return out.Items, out.Total, nil
}

// Viewer is one websocket connection receiving frames and sending input.
type Viewer struct {
	conn *websocket.Conn
	wmu  sync.Mutex
}

// Dial opens a viewer connection. baseURL may use http(s) or ws(s).
func Dial(ctx context.Context, baseURL string) (*Viewer, *http.Response, error) {
	u := baseURL
	switch {
	case strings.HasPrefix(u, "http://"):
		u = "ws://" + strings.TrimPrefix(u, "http://")
	case strings.HasPrefix(u, "https://"):
		u = "wss://" + strings.TrimPrefix(u, "https://")
	}
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, strings.TrimRight(u, "/")+"/ws", nil)
	if err != nil {
		return nil, resp, err
	}
	return &Viewer{conn: conn}, resp, nil
}

// ReadFrame blocks for the next frame and returns the decoded JPEG bytes.
func (v *Viewer) ReadFrame(timeout time.Duration) ([]byte, error) {
	if timeout > 0 {
		_ = v.conn.SetReadDeadline(time.Now().Add(timeout))
	}
	_, data, err := v.conn.ReadMessage()
	if err != nil {
		return nil, err
	}
	return base64.StdEncoding.DecodeString(string(data))
}

func (v *Viewer) Click(x, y int) error { return v.send(domain.Tap{X: x, Y: y}) }

func (v *Viewer) Swipe(startX, startY, endX, endY, durationMs int) error {
	return v.send(domain.Swipe{StartX: startX, StartY: startY, EndX: endX, EndY: endY, DurationMs: durationMs})
}

func (v *Viewer) Key(code int) error { return v.send(domain.Key{Code: code}) }

// SendRaw writes an arbitrary text message.
func (v *Viewer) SendRaw(msg string) error {
	v.wmu.Lock()
	defer v.wmu.Unlock()
	return v.conn.WriteMessage(websocket.TextMessage, []byte(msg))
}

func (v *Viewer) send(cmd domain.ControlCommand) error {
	b, err := control.Encode(cmd)
	if err != nil {
		return err
	}
	return v.SendRaw(string(b))
}

func (v *Viewer) Close() error {
	v.wmu.Lock()
	_ = v.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	v.wmu.Unlock()
	return v.conn.Close()
}
