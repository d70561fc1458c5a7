package amino

import (
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

// --- Client Options ---

// ClientOption configures a Client.
type ClientOption func(*clientConfig)

type clientConfig struct {
	deviceID   string
	deviceSeed []byte
	logger     *slog.Logger
	httpClient *http.Client
	userAgent  string
	baseURL    string
	proxy      string
}

// WithDeviceID supplies a previously generated device id, pinning the
// client's device identity across restarts.
func WithDeviceID(id string) ClientOption {
	return func(c *clientConfig) {
		c.deviceID = id
	}
}

// WithDeviceSeed derives the device id from a fixed 20-byte seed instead of
// a random one.
func WithDeviceSeed(seed []byte) ClientOption {
	return func(c *clientConfig) {
		c.deviceSeed = seed
	}
}

// WithLogger sets a structured logger for the client and its socket.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *clientConfig) {
		c.logger = logger
	}
}

// WithHTTPClient sets the HTTP client used for REST calls.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *clientConfig) {
		c.httpClient = hc
	}
}

// WithUserAgent overrides the default user agent.
func WithUserAgent(ua string) ClientOption {
	return func(c *clientConfig) {
		c.userAgent = ua
	}
}

// WithBaseURL overrides the REST API root, e.g. for tests or mirrors.
func WithBaseURL(base string) ClientOption {
	return func(c *clientConfig) {
		c.baseURL = base
	}
}

// WithProxy routes all REST calls through a forward HTTP proxy.
func WithProxy(proxyURL string) ClientOption {
	return func(c *clientConfig) {
		c.proxy = proxyURL
	}
}

// --- Socket Options ---

// SocketOption configures an event-stream session.
type SocketOption func(*socketConfig)

type socketConfig struct {
	logger            *slog.Logger
	reconnectInterval time.Duration
	reconnectDelay    time.Duration
	onOpen            func()
	onError           func(error)
}

// WithSocketLogger sets a structured logger for the session.
func WithSocketLogger(logger *slog.Logger) SocketOption {
	return func(c *socketConfig) {
		c.logger = logger
	}
}

// WithReconnectInterval sets the proactive reconnect cadence.
// The default is 120 seconds.
func WithReconnectInterval(d time.Duration) SocketOption {
	return func(c *socketConfig) {
		c.reconnectInterval = d
	}
}

// WithReconnectDelay sets the pause before reconnecting after an unexpected
// closure. The default is 1 second.
func WithReconnectDelay(d time.Duration) SocketOption {
	return func(c *socketConfig) {
		c.reconnectDelay = d
	}
}

// WithOnOpen sets a callback invoked each time a connection opens,
// including reconnects.
func WithOnOpen(fn func()) SocketOption {
	return func(c *socketConfig) {
		c.onOpen = fn
	}
}

// WithOnSocketError sets a callback invoked once when the session fails
// terminally.
func WithOnSocketError(fn func(error)) SocketOption {
	return func(c *socketConfig) {
		c.onError = fn
	}
}

// --- Call Options ---

// CallOption configures a single REST call.
type CallOption func(*callConfig)

// WithMethod overrides the HTTP method for a call.
func WithMethod(method string) CallOption {
	return func(c *callConfig) {
		c.method = method
	}
}

// WithContentType sets the content-type header for a call.
func WithContentType(ct string) CallOption {
	return func(c *callConfig) {
		c.contentType = ct
	}
}

// WithRequestProxy routes a single call through a forward HTTP proxy.
func WithRequestProxy(proxy *url.URL) CallOption {
	return func(c *callConfig) {
		c.proxy = proxy
	}
}

// --- Send Options ---

// SendOption configures an outbound chat message.
type SendOption func(*sendConfig)

type sendConfig struct {
	replyTo     string
	mentions    []string
	messageType int
}

// WithReplyTo marks the message as a reply to the given message id.
func WithReplyTo(messageID string) SendOption {
	return func(c *sendConfig) {
		c.replyTo = messageID
	}
}

// WithMentions mentions the given user ids in the message.
func WithMentions(uids ...string) SendOption {
	return func(c *sendConfig) {
		c.mentions = uids
	}
}

// WithMessageType sets the message type. The default is MessageTypeCommon.
func WithMessageType(t int) SendOption {
	return func(c *sendConfig) {
		c.messageType = t
	}
}
