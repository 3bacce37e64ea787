package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/switchboard/internal/pool"
	"github.com/zulandar/switchboard/internal/transport"
)

// startRequest is the RTVI-compatible /start body.
type startRequest struct {
	CreateDailyRoom     *bool                    `json:"createDailyRoom"`
	DailyRoomProperties transport.RoomProperties `json:"dailyRoomProperties"`
	Body                json.RawMessage          `json:"body"`
	UserName            string                   `json:"user_name"`
	BotName             string                   `json:"bot_name"`
}

// handleStart creates a session on the configured transport. Credential
// checks happen here, per request, and a rejected request never consumes
// a worker slot.
func (s *Server) handleStart(c *gin.Context) {
	kind, err := transport.Parse(s.cfg.Transport)
	if err != nil {
		detail(c, http.StatusBadRequest, "unknown transport configured")
		return
	}
	if kind.Telephony() {
		detail(c, http.StatusBadRequest, "telephony transports start sessions via their provider webhook, not /start")
		return
	}

	var req startRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		detail(c, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}

	if verr := transport.ValidateCredentials(kind, s.cfg); verr != nil {
		var ce *transport.ConfigError
		if errors.As(verr, &ce) {
			detail(c, http.StatusBadRequest, ce.Detail())
		} else {
			detail(c, http.StatusBadRequest, verr.Error())
		}
		return
	}

	switch kind {
	case transport.Daily:
		s.startDaily(c, req)
	default: // WebRTC
		s.startWebRTC(c, req)
	}
}

// startDaily provisions a Daily room and tokens, then routes a worker.
func (s *Server) startDaily(c *gin.Context, req startRequest) {
	client := transport.NewDailyClient(s.cfg.Daily, nil)
	ctx := c.Request.Context()

	createRoom := true
	if req.CreateDailyRoom != nil {
		createRoom = *req.CreateDailyRoom
	}

	var roomURL, roomName string
	if createRoom {
		props := req.DailyRoomProperties
		if props.EnableRecording == "" {
			props.EnableRecording = s.cfg.Daily.EnableRecording
		}
		room, err := client.CreateRoom(ctx, props)
		if err != nil {
			detail(c, http.StatusBadGateway, "failed to create Daily room: "+err.Error())
			return
		}
		roomURL, roomName = room.URL, room.Name
	} else {
		if s.cfg.Daily.SampleRoomURL == "" {
			detail(c, http.StatusBadRequest, "createDailyRoom is false and no daily.sample_room_url is configured")
			return
		}
		roomURL = s.cfg.Daily.SampleRoomURL
		roomName = transport.RoomNameFromURL(roomURL)
	}

	userName := req.UserName
	if userName == "" {
		userName = "friend"
	}
	userToken, err := client.CreateMeetingToken(ctx, transport.TokenProperties{
		RoomName: roomName,
		UserName: userName,
	})
	if err != nil {
		detail(c, http.StatusBadGateway, "failed to create meeting token: "+err.Error())
		return
	}

	// The bot joins with its own token so it shows up under its own name.
	botName := req.BotName
	if botName == "" {
		botName = "bot"
	}
	botToken, err := client.CreateMeetingToken(ctx, transport.TokenProperties{
		RoomName: roomName,
		UserName: botName,
	})
	if err != nil {
		detail(c, http.StatusBadGateway, "failed to create bot token: "+err.Error())
		return
	}

	sess, ok := s.route(c, pool.Request{
		Transport: transport.Daily,
		Payload:   req.Body,
		RoomURL:   roomURL,
		Token:     botToken,
	})
	if !ok {
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"dailyRoom":  roomURL + "?t=" + userToken,
		"dailyToken": userToken,
		"sessionId":  sess.ID,
	})
}

// startWebRTC routes a worker that will answer browser WebRTC signaling.
func (s *Server) startWebRTC(c *gin.Context, req startRequest) {
	sess, ok := s.route(c, pool.Request{
		Transport: transport.WebRTC,
		Payload:   req.Body,
	})
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":    "started",
		"transport": "webrtc",
		"sessionId": sess.ID,
	})
}

// route wraps Supervisor.Route with the shared HTTP error mapping.
// PoolExhausted and Draining answer 503 with a retry-later signal.
func (s *Server) route(c *gin.Context, req pool.Request) (*pool.Session, bool) {
	sess, err := s.sup.Route(req)
	if err != nil {
		switch {
		case errors.Is(err, pool.ErrPoolExhausted):
			c.Header("Retry-After", "5")
			detail(c, http.StatusServiceUnavailable, "all worker slots are busy; retry later")
		case errors.Is(err, pool.ErrDraining):
			detail(c, http.StatusServiceUnavailable, "server is shutting down")
		default:
			detail(c, http.StatusInternalServerError, "failed to start session: "+err.Error())
		}
		return nil, false
	}
	return sess, true
}

// transportReady reports whether the named transport has its credentials
// configured.
func (s *Server) transportReady(name string) bool {
	kind, err := transport.Parse(name)
	if err != nil {
		return false
	}
	return transport.ValidateCredentials(kind, s.cfg) == nil
}
