package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/zulandar/switchboard/internal/pool"
	"github.com/zulandar/switchboard/internal/transport"
)

// wsUpgrader upgrades signaling connections. Origin checking is left to
// the deployment's proxy layer, matching the permissive CORS posture of
// the documented deployments.
var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// wsHandshakeTimeout bounds how long we wait for the client's opening
// signaling frame.
const wsHandshakeTimeout = 10 * time.Second

// handleWS binds a websocket signaling channel to one worker for the
// session's duration. The first client frame (SDP offer or provider
// stream metadata) becomes the worker's payload. Closing the socket tears
// the session down and releases the slot.
func (s *Server) handleWS(c *gin.Context) {
	kind, err := transport.Parse(s.cfg.Transport)
	if err != nil {
		detail(c, http.StatusBadRequest, "unknown transport configured")
		return
	}

	conn, err := wsUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		return
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(wsHandshakeTimeout))
	_, payload, err := conn.ReadMessage()
	if err != nil {
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected an opening signaling frame"))
		return
	}
	conn.SetReadDeadline(time.Time{})

	sess, err := s.sup.Route(pool.Request{Transport: kind, Payload: payload})
	if err != nil {
		code := websocket.CloseInternalServerErr
		msg := "failed to start session"
		if errors.Is(err, pool.ErrPoolExhausted) || errors.Is(err, pool.ErrDraining) {
			code = websocket.CloseTryAgainLater
			msg = "no worker available; retry later"
		}
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(code, msg))
		return
	}

	conn.WriteJSON(map[string]string{"type": "session", "sessionId": sess.ID})

	// Reader goroutine: the only purpose is to notice the client going
	// away. Further inbound frames are ignored; media flows through the
	// worker's own transport, not this socket.
	clientGone := make(chan struct{})
	go func() {
		defer close(clientGone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	select {
	case <-clientGone:
		sess.Cancel()
		<-sess.Done()
	case res := <-sess.Done():
		conn.WriteJSON(map[string]string{"type": "ended", "status": res.Status})
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session ended"))
	}
}
