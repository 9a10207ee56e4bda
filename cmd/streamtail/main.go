// streamtail connects to a running activitybot's live stream and prints
// notifications to the console.
// Usage: go run ./cmd/streamtail --url ws://localhost:9090/stream --route sale
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rickgao/artblocks-activity/internal/stream"
)

func main() {
	rawURL := flag.String("url", "ws://localhost:9090/stream", "live stream URL")
	route := flag.String("route", "", "only show this route (sale or listing)")
	verbose := flag.Bool("verbose", false, "print full message JSON")
	flag.Parse()

	// Setup logger
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	target, err := streamURL(*rawURL, *route)
	if err != nil {
		logger.Error("invalid url", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal")
		cancel()
	}()

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, target, nil)
	if err != nil {
		logger.Error("failed to connect", "url", target, "error", err)
		os.Exit(1)
	}
	defer conn.Close()

	go func() {
		<-ctx.Done()
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		conn.Close()
	}()

	logger.Info("streaming started - press Ctrl+C to stop", "url", target)

	var received int
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Error("read failed", "error", err)
			}
			break
		}
		received++
		printMessage(data, *verbose, logger)
	}

	logger.Info("shutdown complete", "received", received)
}

// streamURL adds the route filter to raw.
func streamURL(raw, route string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return "", fmt.Errorf("scheme must be ws or wss, got %q", u.Scheme)
	}
	if route != "" {
		q := u.Query()
		q.Set("route", route)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

func printMessage(data []byte, verbose bool, logger *slog.Logger) {
	var msg stream.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		logger.Warn("unparseable message", "error", err, "raw", string(data))
		return
	}

	if verbose {
		out, _ := json.MarshalIndent(msg, "", "  ")
		fmt.Printf("[%s] %s\n", msg.Route, out)
		return
	}

	fmt.Printf("[%s] %s token=%s at=%s %s\n",
		msg.Route,
		msg.Embed.Title,
		msg.TokenID,
		msg.OccurredAt.Format(time.RFC3339),
		msg.Embed.URL,
	)
}
