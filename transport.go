package amino

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"
)

// socketHost is the event-stream endpoint.
const socketHost = "wss://ws3.narvii.com"

// ConnectData is one connection attempt against the event stream. The nonce
// embeds the current timestamp, so every attempt is unique and must be
// rebuilt for every connect and reconnect.
type ConnectData struct {
	DeviceID  string
	SID       string
	Body      string // deviceID|unixMillis, signed and echoed in the URL
	Signature string
	URL       string
}

// NewConnectData builds a fresh connection attempt for the given identity.
func NewConnectData(deviceID, sid string) ConnectData {
	body := deviceID + "|" + strconv.FormatInt(time.Now().UnixMilli(), 10)
	return ConnectData{
		DeviceID:  deviceID,
		SID:       sid,
		Body:      body,
		Signature: SignBody([]byte(body)),
		URL:       socketHost + "/?signbody=" + strings.Replace(body, "|", "%7C", 1),
	}
}

// SocketTransport receives raw frames from the event stream.
// Implementations must be safe for concurrent use.
type SocketTransport interface {
	Receive(ctx context.Context) ([]byte, error)
	Close() error
}

// SocketDialer opens a transport for a connection attempt. The default is
// DialSocket; tests supply their own.
type SocketDialer func(ctx context.Context, data ConnectData) (SocketTransport, error)

// DialSocket connects to the event stream over WebSocket, presenting the
// device id, session auth, and nonce signature in the handshake headers.
func DialSocket(ctx context.Context, data ConnectData) (SocketTransport, error) {
	headers := http.Header{}
	headers.Set("NDCDEVICEID", data.DeviceID)
	headers.Set("NDC-MSG-SIG", data.Signature)
	if data.SID != "" {
		headers.Set("NDCAUTH", "sid="+data.SID)
	}

	conn, _, err := websocket.Dial(ctx, data.URL, &websocket.DialOptions{
		HTTPHeader: headers,
	})
	if err != nil {
		return nil, &ConnectionError{Op: "dial", URL: data.URL, Err: err}
	}

	conn.SetReadLimit(1 << 20)

	return &wsTransport{conn: conn}, nil
}

// wsTransport implements SocketTransport over WebSocket.
type wsTransport struct {
	conn   *websocket.Conn
	mu     sync.Mutex
	closed bool
}

// Receive reads one frame from the stream.
func (t *wsTransport) Receive(ctx context.Context) ([]byte, error) {
	_, data, err := t.conn.Read(ctx)
	if err != nil {
		t.mu.Lock()
		closed := t.closed
		t.mu.Unlock()
		if closed {
			return nil, ErrSocketClosed
		}
		return nil, &ConnectionError{Op: "read", Err: err}
	}
	return data, nil
}

// Close closes the transport.
func (t *wsTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil
	}
	t.closed = true

	return t.conn.Close(websocket.StatusNormalClosure, "")
}
