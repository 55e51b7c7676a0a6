package server

import (
	"context"
	"net/http"
	"regexp"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/nguyentranbao-ct/kvrp/internal/live"
	"github.com/nguyentranbao-ct/kvrp/internal/models"
	"github.com/nguyentranbao-ct/kvrp/internal/server/middleware"
	"github.com/nguyentranbao-ct/kvrp/pkg/logger/logctx"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	maxInboundFrame = 1 << 10
)

type inboundFrame struct {
	Type string `json:"type"`
}

// SocketHandler serves one live feed per websocket connection. The feed
// lives exactly as long as the socket.
type SocketHandler struct {
	feeds    FeedCatalog
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*socketClient]struct{}
}

func NewSocketHandler(feeds FeedCatalog, origins *regexp.Regexp) *SocketHandler {
	return &SocketHandler{
		feeds: feeds,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get(echo.HeaderOrigin)
				return origin == "" || origins.MatchString(origin)
			},
		},
		clients: map[*socketClient]struct{}{},
	}
}

func (h *SocketHandler) Serve(c echo.Context) error {
	var req feedRequest
	if err := middleware.BindAndValidate(c, &req); err != nil {
		return err
	}
	sess := middleware.GetSession(c)
	name := req.name()
	if _, _, err := live.Query(name, sess); err != nil {
		return err
	}

	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// the upgrader has already replied
		return nil
	}
	ctx, cancel := context.WithCancel(logctx.With(c.Request().Context(), "feed", name))
	defer cancel()

	client := &socketClient{
		conn:    conn,
		frames:  make(chan live.Frame, 1),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	view, err := h.feeds.Open(ctx, name, sess, formatter(c), client.offer)
	if err != nil {
		logctx.Warnw(ctx, "open live feed", "error", err)
		client.reject(err)
		return nil
	}
	h.track(client, true)
	defer h.track(client, false)

	logctx.Infow(ctx, "live feed opened")
	go client.writePump(ctx)
	client.readPump(ctx, view)

	if err := view.Close(); err != nil {
		logctx.Warnw(ctx, "close live feed", "error", err)
	}
	close(client.done)
	<-client.stopped
	logctx.Infow(ctx, "live feed closed")
	return nil
}

func (h *SocketHandler) track(c *socketClient, on bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if on {
		h.clients[c] = struct{}{}
	} else {
		delete(h.clients, c)
	}
}

// Shutdown drops every open socket. Hijacked connections are not closed
// by the http server.
func (h *SocketHandler) Shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		_ = c.conn.Close()
	}
}

type socketClient struct {
	conn *websocket.Conn
	// frames holds at most the newest frame; older ones are replaced.
	frames  chan live.Frame
	done    chan struct{}
	stopped chan struct{}
}

// offer runs under the feed lock, so it never blocks. Calls are serialized,
// which keeps the drain and send below race free.
func (c *socketClient) offer(f live.Frame) {
	select {
	case <-c.frames:
	default:
	}
	select {
	case c.frames <- f:
	default:
	}
}

func (c *socketClient) readPump(ctx context.Context, view live.View) {
	c.conn.SetReadLimit(maxInboundFrame)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				logctx.Warnw(ctx, "read socket", "error", err)
			}
			return
		}
		var in inboundFrame
		if err := json.Unmarshal(data, &in); err != nil || in.Type != "refresh" {
			logctx.Debugw(ctx, "ignore inbound frame", "frame", string(data))
			continue
		}
		// a failed refresh reaches the client as a notice
		if err := view.Refresh(ctx); err != nil {
			logctx.Warnw(ctx, "refresh live feed", "error", err)
		}
	}
}

func (c *socketClient) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
		close(c.stopped)
	}()
	for {
		select {
		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case f := <-c.frames:
			if err := c.write(f); err != nil {
				logctx.Warnw(ctx, "write socket", "error", err)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *socketClient) write(f live.Frame) error {
	data, err := json.Marshal(f)
	if err != nil {
		return err
	}
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// reject sends a single error frame and closes the socket.
func (c *socketClient) reject(err error) {
	_ = c.write(live.Frame{Type: "error", Notice: models.Notice(err)})
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseInternalServerErr, ""), time.Now().Add(writeWait))
	_ = c.conn.Close()
}
