package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/farm-platform/farm-dashboard/internal/cache"
)

const (
	streamWriteWait  = 10 * time.Second
	streamPongWait   = 60 * time.Second
	streamPingPeriod = (streamPongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 16 * 1024,
}

// streamHandler pushes the current snapshot on connect and every published snapshot after it.
// Snapshots carry the full state, so a slow client skips intermediate ones and always receives
// the latest.
func streamHandler(deps *Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			deps.Logger.WithError(err).Warn("Failed to upgrade snapshot stream")
			return
		}
		defer ws.Close()

		if deps.Metrics != nil {
			deps.Metrics.StreamListeners.Inc()
			defer deps.Metrics.StreamListeners.Dec()
		}

		updates := make(chan cache.Snapshot, 1)
		unsubscribe := deps.Cache.Subscribe(func(s cache.Snapshot) {
			offerLatest(updates, s)
		})
		defer unsubscribe()

		closed := make(chan struct{})
		go readUntilClosed(ws, closed)

		ping := time.NewTicker(streamPingPeriod)
		defer ping.Stop()

		lastVersion := uint64(0)
		send := func(s cache.Snapshot) error {
			if s.Version != 0 && s.Version <= lastVersion {
				return nil
			}
			lastVersion = s.Version
			_ = ws.SetWriteDeadline(time.Now().Add(streamWriteWait))
			return ws.WriteJSON(StreamMessage{
				Type:     "snapshot",
				Snapshot: s,
				Derived:  deps.Cache.DerivedFor(s),
			})
		}

		if err := send(deps.Cache.Snapshot()); err != nil {
			return
		}

		for {
			select {
			case s := <-updates:
				if err := send(s); err != nil {
					deps.Logger.WithError(err).Debug("Snapshot stream write failed")
					return
				}
			case <-ping.C:
				if err := ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(streamWriteWait)); err != nil {
					return
				}
			case <-closed:
				return
			case <-c.Request.Context().Done():
				return
			}
		}
	}
}

// offerLatest puts s in a one-slot channel, replacing an unread older snapshot
func offerLatest(ch chan cache.Snapshot, s cache.Snapshot) {
	select {
	case ch <- s:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- s:
	default:
	}
}

// readUntilClosed consumes client frames so control messages are processed, and closes done
// when the connection ends
func readUntilClosed(ws *websocket.Conn, done chan<- struct{}) {
	defer close(done)
	_ = ws.SetReadDeadline(time.Now().Add(streamPongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(streamPongWait))
	})
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			return
		}
	}
}
