package server

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/switchboard/internal/pool"
	"github.com/zulandar/switchboard/internal/transport"
)

// maxWebhookBody caps telephony webhook payload size.
const maxWebhookBody = 1 << 20

// handleWebhook routes a telephony provider webhook to a worker. The raw
// payload is handed to the worker as-is; provider-specific parsing is the
// bot framework's job, not the front door's.
func (s *Server) handleWebhook(provider string) gin.HandlerFunc {
	return func(c *gin.Context) {
		kind, err := transport.Parse(provider)
		if err != nil {
			detail(c, http.StatusNotFound, "unknown provider")
			return
		}

		// This deployment serves exactly one transport; a webhook for any
		// other provider is a misdirected configuration.
		if s.cfg.Transport != provider {
			detail(c, http.StatusBadRequest, provider+" transport is not enabled in this deployment")
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

		payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
		if err != nil {
			detail(c, http.StatusBadRequest, "failed to read webhook body")
			return
		}

		sess, ok := s.route(c, pool.Request{
			Transport: kind,
			Payload:   payload,
		})
		if !ok {
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"sessionId": sess.ID,
		})
	}
}
