package session

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/kiranshivaraju/interviewbot/internal/cache"
	"github.com/kiranshivaraju/interviewbot/pkg/models"
)

// StatusTTL bounds how long a session status stays readable after its last update.
const StatusTTL = 24 * time.Hour

const publishTimeout = 2 * time.Second

// publish writes the session snapshot to the status cache. Failures are
// logged and otherwise ignored; status is advisory.
func publish(ctx context.Context, c cache.Cache, sess *models.Session) {
	if c == nil {
		return
	}
	data, err := json.Marshal(sess)
	if err != nil {
		slog.Warn("encode session status", "session_id", sess.ID, "error", err)
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := c.SetSessionStatus(ctx, sess.ID, data, StatusTTL); err != nil {
		slog.Warn("publish session status", "session_id", sess.ID, "error", err)
	}
}
