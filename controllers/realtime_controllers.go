package controllers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sarthaktajane07/DineFlow/middlewares"
	"github.com/sarthaktajane07/DineFlow/realtime"
	"github.com/sarthaktajane07/DineFlow/utils"
	"github.com/sirupsen/logrus"
)

type RealtimeController struct {
	Hub *realtime.Hub
	Log logrus.FieldLogger
}

func NewRealtimeController(hub *realtime.Hub, log logrus.FieldLogger) *RealtimeController {
	return &RealtimeController{Hub: hub, Log: log}
}

// Connect -> GET /ws?token=<jwt>&topics=table:updated,waitlist:added
func (rc *RealtimeController) Connect(c *gin.Context) {
	var topics []string
	if raw := c.Query("topics"); raw != "" {
		for _, t := range strings.Split(raw, ",") {
			t = strings.TrimSpace(t)
			if t == "" {
				continue
			}
			if !realtime.ValidTopic(t) {
				utils.RespondError(c, http.StatusBadRequest, errors.New("unknown topic "+t))
				return
			}
			topics = append(topics, t)
		}
	}

	conn, err := realtime.Upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		rc.Log.WithError(err).Warn("Websocket upgrade failed")
		return
	}

	log := rc.Log.WithFields(logrus.Fields{
		"user_id": middlewares.CurrentUserID(c),
		"role":    middlewares.CurrentRole(c),
	})
	log.Info("Observer connected")
	realtime.NewClient(rc.Hub, conn, log, topics...).Run()
	log.Info("Observer disconnected")
}
