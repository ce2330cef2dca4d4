package api

import (
	"context"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"relaygo/internal/relay"
	"relaygo/internal/resume"
)

// SessionResumer judges whether a connection continues a prior one and
// records disconnects for later resumption.
type SessionResumer interface {
	Claim(ctx context.Context, sid string) bool
	MarkDisconnected(ctx context.Context, sid string)
}

// Handler wires HTTP routes to the broadcast hub.
type Handler struct {
	hub        *relay.Hub
	resumer    SessionResumer
	clientPage string
}

// NewHandler constructs a Handler instance.
func NewHandler(hub *relay.Hub, resumer SessionResumer, clientPage string) *Handler {
	return &Handler{
		hub:        hub,
		resumer:    resumer,
		clientPage: clientPage,
	}
}

// RegisterRoutes attaches all HTTP routes to the router.
func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.GET("/", h.index)
	router.GET("/ws", h.serveWS)
}

func (h *Handler) index(c *gin.Context) {
	if h.clientPage == "" {
		c.Status(http.StatusNotFound)
		return
	}
	c.File(h.clientPage)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// serveWS upgrades the connection and runs the session until the transport
// drops. Handshake parameters: username (identity label, unauthenticated),
// offset (last-seen position, default 0), sid (resume token from a prior
// connection).
func (h *Handler) serveWS(c *gin.Context) {
	identity := c.Query("username")
	offset, err := strconv.ParseInt(c.Query("offset"), 10, 64)
	if err != nil || offset < 0 {
		offset = 0
	}

	ctx := c.Request.Context()
	sid := c.Query("sid")
	recovered := h.resumer.Claim(ctx, sid)
	if sid == "" {
		sid, err = resume.NewSessionID()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not start session"})
			return
		}
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("websocket upgrade failed: %v", err)
		return
	}

	sess := relay.NewSession(h.hub, conn, identity, offset, recovered)
	go sess.WritePump(ctx, sid)
	sess.ReadPump()

	h.resumer.MarkDisconnected(context.Background(), sid)
}
