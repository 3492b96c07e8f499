package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sarthaktajane07/DineFlow/services"
	"github.com/sarthaktajane07/DineFlow/utils"
	"github.com/sirupsen/logrus"
)

const maxActivityLimit = 200

type ActivityController struct {
	Recorder *services.ActivityRecorder
	Log      logrus.FieldLogger
}

func NewActivityController(recorder *services.ActivityRecorder, log logrus.FieldLogger) *ActivityController {
	return &ActivityController{Recorder: recorder, Log: log}
}

// GetActivities -> GET /api/activities?limit=50
func (ac *ActivityController) GetActivities(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(services.DefaultActivityLimit)))
	if err != nil || limit <= 0 {
		limit = services.DefaultActivityLimit
	}
	if limit > maxActivityLimit {
		limit = maxActivityLimit
	}

	activities, err := ac.Recorder.Recent(c.Request.Context(), limit)
	if err != nil {
		respondServiceError(c, ac.Log, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Recent activities", gin.H{"count": len(activities), "activities": activities})
}
