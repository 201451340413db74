package httpapi

import (
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"screencast/internal/domain"
)

// maxControlMessage bounds a single viewer message; control JSON is tiny.
const maxControlMessage = 64 << 10

// wsTransport adapts a gorilla connection to usecase.Transport.
type wsTransport struct {
	conn   *websocket.Conn
	remote string
	// one writer in gorilla/websocket
	writeMu   sync.Mutex
	closeOnce sync.Once
}

func newWSTransport(c *websocket.Conn, remote string) *wsTransport {
	c.SetReadLimit(maxControlMessage)
	_ = c.SetReadDeadline(time.Time{})
	return &wsTransport{conn: c, remote: remote}
}

func (t *wsTransport) ReadText() ([]byte, error) {
	_, data, err := t.conn.ReadMessage()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrTransportClosed, err)
	}
	return data, nil
}

// WriteText sends one text frame. gorilla poisons the connection after any
// write failure, so every error is reported as a closed transport.
func (t *wsTransport) WriteText(data string, deadline time.Time) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	_ = t.conn.SetWriteDeadline(deadline)
	if err := t.conn.WriteMessage(websocket.TextMessage, []byte(data)); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrTransportClosed, err)
	}
	return nil
}

func (t *wsTransport) Close() error {
	var err error
	t.closeOnce.Do(func() {
		_ = t.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session stopped"),
			time.Now().Add(time.Second))
		err = t.conn.Close()
	})
	return err
}

func (t *wsTransport) RemoteAddr() string { return t.remote }
