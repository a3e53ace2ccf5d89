package relay

import (
	"log/slog"
	"net/http"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
)

// WSHandler upgrades the request to a WebSocket and streams broker events as
// text frames until the client disconnects.
func WSHandler(broker *Broker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, _, _, err := ws.UpgradeHTTP(r, w)
		if err != nil {
			slog.Debug("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
			return
		}

		id, events := broker.Subscribe()
		slog.Info("event stream client connected", "subscriber_id", id, "remote", r.RemoteAddr)

		closed := make(chan struct{})
		go func() {
			// Drain client frames; an error means the peer went away.
			defer close(closed)
			for {
				if _, _, err := wsutil.ReadClientData(conn); err != nil {
					return
				}
			}
		}()

		defer func() {
			broker.Unsubscribe(id)
			_ = conn.Close()
			slog.Info("event stream client disconnected", "subscriber_id", id)
		}()

		for {
			select {
			case <-closed:
				return
			case evt, ok := <-events:
				if !ok {
					return
				}
				data := marshalEvent(evt)
				if data == nil {
					continue
				}
				if err := wsutil.WriteServerText(conn, data); err != nil {
					slog.Debug("event stream write failed", "subscriber_id", id, "error", err)
					return
				}
			}
		}
	}
}
