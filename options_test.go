package amino

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestWithDeviceSeed_PinsIdentity(t *testing.T) {
	seed := []byte("0123456789abcdefghij")

	a, err := New(WithDeviceSeed(seed))
	if err != nil {
		t.Fatal(err)
	}
	b, err := New(WithDeviceSeed(seed))
	if err != nil {
		t.Fatal(err)
	}

	if a.DeviceID() != b.DeviceID() {
		t.Errorf("device ids differ across restarts: %s != %s", a.DeviceID(), b.DeviceID())
	}
}

func TestWithDeviceID(t *testing.T) {
	id := GenerateDeviceID([]byte("0123456789abcdefghij"))

	c, err := New(WithDeviceID(id))
	if err != nil {
		t.Fatal(err)
	}
	if c.DeviceID() != id {
		t.Errorf("DeviceID = %q, want supplied id", c.DeviceID())
	}
}

func TestWithUserAgent(t *testing.T) {
	var ua string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ua = r.Header.Get("User-Agent")
		w.Write([]byte(`{"api:statuscode":0}`))
	}))
	defer srv.Close()

	c, err := New(WithBaseURL(srv.URL), WithUserAgent("test-agent/1.0"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.JoinedCommunities(context.Background(), 0, 10); err != nil {
		t.Fatal(err)
	}
	if ua != "test-agent/1.0" {
		t.Errorf("User-Agent = %q, want test-agent/1.0", ua)
	}
}

func TestWithProxy_Invalid(t *testing.T) {
	if _, err := New(WithProxy("://bad")); err == nil {
		t.Error("expected error for unparseable proxy url")
	}
}

func TestSocketOptionDefaults(t *testing.T) {
	cfg := socketConfig{
		reconnectInterval: 120 * time.Second,
		reconnectDelay:    time.Second,
	}

	WithReconnectInterval(time.Minute)(&cfg)
	WithReconnectDelay(5 * time.Second)(&cfg)

	if cfg.reconnectInterval != time.Minute {
		t.Errorf("reconnectInterval = %v, want 1m", cfg.reconnectInterval)
	}
	if cfg.reconnectDelay != 5*time.Second {
		t.Errorf("reconnectDelay = %v, want 5s", cfg.reconnectDelay)
	}
}

func TestSendOptions(t *testing.T) {
	cfg := sendConfig{messageType: MessageTypeCommon}

	WithReplyTo("M")(&cfg)
	WithMentions("u1", "u2")(&cfg)
	WithMessageType(MessageTypeEnter)(&cfg)

	if cfg.replyTo != "M" {
		t.Errorf("replyTo = %q, want M", cfg.replyTo)
	}
	if len(cfg.mentions) != 2 {
		t.Errorf("mentions = %v, want two entries", cfg.mentions)
	}
	if cfg.messageType != MessageTypeEnter {
		t.Errorf("messageType = %d, want %d", cfg.messageType, MessageTypeEnter)
	}
}
