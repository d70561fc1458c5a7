package amino

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

// newTestRequester returns a Requester pointed at a test server that records
// every request it receives.
func newTestRequester(t *testing.T, sid string, handler http.HandlerFunc) (*Requester, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	r := NewRequester("DEVICE123", &RequesterOptions{
		SID:     sid,
		BaseURL: srv.URL,
	})
	return r, srv
}

func TestRequester_Headers_NoSession(t *testing.T) {
	var got *http.Request
	r, _ := newTestRequester(t, "", func(w http.ResponseWriter, req *http.Request) {
		got = req.Clone(context.Background())
		w.Write([]byte(`{"api:statuscode":0}`))
	})

	if _, err := r.Do(context.Background(), "/community/joined", nil); err != nil {
		t.Fatalf("Do error: %v", err)
	}

	if got.Method != http.MethodGet {
		t.Errorf("method = %s, want GET", got.Method)
	}
	if got.Header.Get("NDCDEVICEID") != "DEVICE123" {
		t.Errorf("NDCDEVICEID = %q, want DEVICE123", got.Header.Get("NDCDEVICEID"))
	}
	if h := got.Header.Get("NDCAUTH"); h != "" {
		t.Errorf("NDCAUTH = %q, want unset", h)
	}
	if h := got.Header.Get("NDC-MSG-SIG"); h != "" {
		t.Errorf("NDC-MSG-SIG = %q, want unset for bodyless request", h)
	}
	if got.URL.Path != "/g/s/community/joined" {
		t.Errorf("path = %q, want /g/s/community/joined", got.URL.Path)
	}
}

func TestRequester_Headers_WithSessionAndBody(t *testing.T) {
	var got *http.Request
	r, _ := newTestRequester(t, "sid-token", func(w http.ResponseWriter, req *http.Request) {
		got = req.Clone(context.Background())
		w.Write([]byte(`{"api:statuscode":0}`))
	})

	body := map[string]any{"timestamp": 1700000000000}
	if _, err := r.Do(context.Background(), "/auth/login", body, WithContentType("application/json")); err != nil {
		t.Fatalf("Do error: %v", err)
	}

	if got.Method != http.MethodPost {
		t.Errorf("method = %s, want POST (body present)", got.Method)
	}
	if h := got.Header.Get("NDCAUTH"); h != "sid=sid-token" {
		t.Errorf("NDCAUTH = %q, want sid=sid-token", h)
	}
	if h := got.Header.Get("Content-Type"); h != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", h)
	}

	payload, _ := json.Marshal(body)
	if h := got.Header.Get("NDC-MSG-SIG"); h != SignBody(payload) {
		t.Errorf("NDC-MSG-SIG = %q, want %q", h, SignBody(payload))
	}
}

func TestRequester_SignatureVariesWithBody(t *testing.T) {
	sigs := make([]string, 0, 2)
	r, _ := newTestRequester(t, "", func(w http.ResponseWriter, req *http.Request) {
		sigs = append(sigs, req.Header.Get("NDC-MSG-SIG"))
		w.Write([]byte(`{}`))
	})

	ctx := context.Background()
	if _, err := r.Do(ctx, "/x", []byte(`{"a":1}`)); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Do(ctx, "/x", []byte(`{"a":2}`)); err != nil {
		t.Fatal(err)
	}

	if sigs[0] == "" || sigs[1] == "" {
		t.Fatal("signature header missing on body-bearing request")
	}
	if sigs[0] == sigs[1] {
		t.Error("signature did not change with the body")
	}
}

func TestRequester_MethodOverride(t *testing.T) {
	var method string
	r, _ := newTestRequester(t, "", func(w http.ResponseWriter, req *http.Request) {
		method = req.Method
		w.Write([]byte(`{"api:statuscode":0}`))
	})

	if _, err := r.Do(context.Background(), "/chat/thread/T/message/M", nil, WithMethod(http.MethodDelete)); err != nil {
		t.Fatalf("Do error: %v", err)
	}
	if method != http.MethodDelete {
		t.Errorf("method = %s, want DELETE", method)
	}
}

func TestRequester_NonOKStatusReturnsBody(t *testing.T) {
	r, _ := newTestRequester(t, "", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"api:statuscode":104,"api:message":"Invalid request"}`))
	})

	raw, err := r.Do(context.Background(), "/auth/login", []byte(`{}`))
	if err != nil {
		t.Fatalf("non-2xx must not be an error at this layer, got: %v", err)
	}

	var resp APIResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		t.Fatalf("unmarshal error: %v", err)
	}
	if resp.StatusCode != 104 {
		t.Errorf("api:statuscode = %d, want 104", resp.StatusCode)
	}
	if err := resp.Err(); err == nil {
		t.Error("APIResponse.Err() = nil for non-zero status code")
	}
}

func TestRequester_NonJSONBody(t *testing.T) {
	r, _ := newTestRequester(t, "", func(w http.ResponseWriter, req *http.Request) {
		w.Write([]byte("<html>busted</html>"))
	})

	_, err := r.Do(context.Background(), "/x", nil)
	if err == nil {
		t.Fatal("expected error for non-JSON body")
	}
}

func TestRequester_Scoped(t *testing.T) {
	var path string
	r, _ := newTestRequester(t, "", func(w http.ResponseWriter, req *http.Request) {
		path = req.URL.Path
		w.Write([]byte(`{"api:statuscode":0}`))
	})

	scoped := r.Scoped(1234)
	if _, err := scoped.Do(context.Background(), "/chat/thread", nil); err != nil {
		t.Fatalf("Do error: %v", err)
	}
	if path != "/x1234/s/chat/thread" {
		t.Errorf("path = %q, want /x1234/s/chat/thread", path)
	}

	// Scoping derives a new Requester; the original keeps global scope.
	if _, err := r.Do(context.Background(), "/chat/thread", nil); err != nil {
		t.Fatalf("Do error: %v", err)
	}
	if path != "/g/s/chat/thread" {
		t.Errorf("path = %q, want /g/s/chat/thread", path)
	}
}
