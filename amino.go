// Package amino provides a Go client for the Amino (Narvii) REST and
// event-stream APIs.
//
// The client signs every request with the device identity and payload
// signatures the backend requires, and maintains a long-lived WebSocket
// session that delivers chat messages to registered handlers.
//
// # Thread Safety
//
// [Client] and [Socket] are safe for concurrent use by multiple goroutines.
// Message and command handlers run sequentially on the socket's read
// goroutine; a slow handler delays delivery of subsequent messages.
//
// # Basic Usage
//
//	ctx := context.Background()
//
//	client, err := amino.New()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	if _, err := client.Login(ctx, "you@example.com", "password"); err != nil {
//	    log.Fatal(err)
//	}
//
//	sock, err := client.Connect(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	sock.OnCommand("!hello", func(msg *amino.ChatMessage) {
//	    client.Reply(ctx, msg, "Hello, world!")
//	})
//
//	<-sock.Done()
//
// # Observability
//
// Use [WithLogger] to attach a structured logger. Request and frame traces
// are logged at debug level; skipped frames at warn; terminal socket
// failures at error:
//
//	client, err := amino.New(
//	    amino.WithLogger(slog.Default()),
//	)
package amino

// Version is the library version reported in the default user agent.
const Version = "0.1.0"
