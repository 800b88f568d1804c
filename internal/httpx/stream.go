package httpx

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

func (a *API) interval() time.Duration {
	if a.StreamInterval > 0 {
		return a.StreamInterval
	}
	return 30 * time.Second
}

// SubscribeSSEHandler pushes the cheapest combination as server-sent events,
// re-predicting on every tick.
func (a *API) SubscribeSSEHandler(w http.ResponseWriter, r *http.Request) {
	q, err := a.routeQuery(r.PathValue("dep"), r.PathValue("dest"), r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, r, http.StatusInternalServerError, "streaming unsupported")
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ticker := time.NewTicker(a.interval())
	defer ticker.Stop()

	ctx := r.Context()
	for {
		c, err := a.Selector.Cheapest(ctx, q)
		if err != nil {
			if ctx.Err() == nil {
				fmt.Fprintf(w, "event: error\ndata: %q\n\n", err.Error())
				flusher.Flush()
			}
			return
		}
		payload, _ := json.Marshal(toResponse(c))
		fmt.Fprintf(w, "event: update\ndata: %s\n\n", payload)
		flusher.Flush()

		select {
		case <-ctx.Done():
			slog.DebugContext(ctx, "sse client closed", "req_id", RequestID(ctx))
			return
		case <-ticker.C:
		}
	}
}

var upgrader = websocket.Upgrader{
	// Origin policy is enforced by the CORS layer and the bearer token.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// SubscribeWSHandler is the websocket flavour of SubscribeSSEHandler.
func (a *API) SubscribeWSHandler(w http.ResponseWriter, r *http.Request) {
	q, err := a.routeQuery(r.PathValue("dep"), r.PathValue("dest"), r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.WarnContext(r.Context(), "websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	// The read loop handles control frames and notices a closed peer.
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(a.interval())
	defer ticker.Stop()

	for {
		c, err := a.Selector.Cheapest(ctx, q)
		if err != nil {
			if ctx.Err() == nil {
				_ = conn.WriteJSON(map[string]string{"error": err.Error()})
			}
			return
		}
		if err := conn.WriteJSON(toResponse(c)); err != nil {
			slog.DebugContext(ctx, "websocket write failed", "error", err)
			return
		}

		select {
		case <-ctx.Done():
			slog.DebugContext(ctx, "websocket client closed", "req_id", RequestID(ctx))
			return
		case <-ticker.C:
		}
	}
}
