// Package websocket is the front door of the relay: it upgrades HTTP requests,
// routes them to their room and pumps inbound frames into the room actor.
package websocket

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/runtime"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

const DefaultReadLimit = 4096

type RoomResolver interface {
	Resolve(name string) (*runtime.Room, error)
}

type HandlerConfig struct {
	WriteTimeout time.Duration
	ReadLimit    int64
}

type Handler struct {
	log      *slog.Logger
	rooms    RoomResolver
	config   HandlerConfig
	upgrader websocket.Upgrader
}

func NewHandler(log *slog.Logger, rooms RoomResolver, config HandlerConfig) *Handler {
	if config.ReadLimit <= 0 {
		config.ReadLimit = DefaultReadLimit
	}
	return &Handler{
		log:    log,
		rooms:  rooms,
		config: config,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// NewServer routes every path to the handler, the first segment naming the room.
func NewServer(handler *Handler) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Any("/*", handler.ServeWS)
	return e
}

// ServeWS serves one client connection until it is closed.
func (h *Handler) ServeWS(c echo.Context) error {
	req := c.Request()
	if !strings.EqualFold(req.Header.Get(echo.HeaderUpgrade), "websocket") {
		return c.String(http.StatusUpgradeRequired, "Expected Upgrade: websocket")
	}

	name := domain.RoomName(req.URL.Path)
	room, err := h.rooms.Resolve(name)
	if err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "Room unavailable").SetInternal(err)
	}

	ws, err := h.upgrader.Upgrade(c.Response(), req, nil)
	if err != nil {
		// The upgrader has already answered the request
		h.log.Warn("WebSocket upgrade failed", "room", name, "error", err)
		return nil
	}

	conn := NewConn(ws, h.config.WriteTimeout)
	h.log.Debug("Connection accepted", "room", name, "conn", conn.ID(), "remote", req.RemoteAddr)
	room.Accept(conn)

	code, reason := h.readPump(room, conn, ws)
	room.Disconnect(conn, code, reason)
	_ = conn.Close(replyCode(code), reason)
	h.log.Debug("Connection closed", "room", name, "conn", conn.ID(), "code", code)
	return nil
}

// readPump forwards every frame to the room, text and binary alike, and
// returns the close code and reason once reading fails.
func (h *Handler) readPump(room *runtime.Room, conn *Conn, ws *websocket.Conn) (int, string) {
	ws.SetReadLimit(h.config.ReadLimit)
	for {
		_, payload, err := ws.ReadMessage()
		if err != nil {
			var closeErr *websocket.CloseError
			switch {
			case errors.As(err, &closeErr):
				return closeErr.Code, closeErr.Text
			case errors.Is(err, websocket.ErrReadLimit):
				return websocket.CloseMessageTooBig, "message too big"
			default:
				return websocket.CloseAbnormalClosure, err.Error()
			}
		}
		room.Receive(conn, payload)
	}
}

// replyCode maps codes that must not appear on the wire to a normal closure.
func replyCode(code int) int {
	switch code {
	case websocket.CloseNoStatusReceived, websocket.CloseAbnormalClosure, websocket.CloseTLSHandshake:
		return contract.CloseNormal
	default:
		return code
	}
}
