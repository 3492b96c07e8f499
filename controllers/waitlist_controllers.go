package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sarthaktajane07/DineFlow/middlewares"
	"github.com/sarthaktajane07/DineFlow/services"
	"github.com/sarthaktajane07/DineFlow/utils"
	"github.com/sirupsen/logrus"
)

type WaitlistController struct {
	Waitlist *services.WaitlistService
	Log      logrus.FieldLogger
}

func NewWaitlistController(waitlist *services.WaitlistService, log logrus.FieldLogger) *WaitlistController {
	return &WaitlistController{Waitlist: waitlist, Log: log}
}

func (wc *WaitlistController) GetWaitlist(c *gin.Context) {
	entries, err := wc.Waitlist.List(c.Request.Context(), services.WaitlistFilter{
		Status:   c.Query("status"),
		Priority: c.Query("priority"),
	})
	if err != nil {
		respondServiceError(c, wc.Log, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Waitlist", gin.H{"count": len(entries), "waitlist": entries})
}

func (wc *WaitlistController) GetEntry(c *gin.Context) {
	entry, err := wc.Waitlist.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondServiceError(c, wc.Log, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Waitlist entry", gin.H{"entry": entry})
}

func (wc *WaitlistController) AddToWaitlist(c *gin.Context) {
	var req services.AddWaitlistInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	entry, err := wc.Waitlist.Add(c.Request.Context(), req, middlewares.CurrentUserID(c))
	if err != nil {
		respondServiceError(c, wc.Log, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Added to waitlist successfully", gin.H{"entry": entry})
}

func (wc *WaitlistController) UpdateEntry(c *gin.Context) {
	var req services.UpdateWaitlistInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	entry, err := wc.Waitlist.Update(c.Request.Context(), c.Param("id"), req, middlewares.CurrentUserID(c))
	if err != nil {
		respondServiceError(c, wc.Log, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Waitlist entry updated", gin.H{"entry": entry})
}

// NotifyGuest -> POST /api/waitlist/:id/notify, body {"tableNumber": "12"} optional.
func (wc *WaitlistController) NotifyGuest(c *gin.Context) {
	var req struct {
		TableNumber string `json:"tableNumber"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return
		}
	}

	entry, err := wc.Waitlist.Notify(c.Request.Context(), c.Param("id"), req.TableNumber, middlewares.CurrentUserID(c))
	if err != nil {
		respondServiceError(c, wc.Log, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Guest notified successfully", gin.H{"entry": entry})
}

func (wc *WaitlistController) SeatGuest(c *gin.Context) {
	var req struct {
		TableID string `json:"tableId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	res, err := wc.Waitlist.Seat(c.Request.Context(), c.Param("id"), req.TableID, middlewares.CurrentUserID(c))
	if err != nil {
		respondServiceError(c, wc.Log, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Guest seated successfully", gin.H{"entry": res.Entry, "table": res.Table})
}

// RemoveFromWaitlist -> DELETE /api/waitlist/:id?reason=no-show|cancelled|other
func (wc *WaitlistController) RemoveFromWaitlist(c *gin.Context) {
	reason := c.Query("reason")
	if reason == "" && c.Request.ContentLength > 0 {
		var req struct {
			Reason string `json:"reason"`
		}
		if err := c.ShouldBindJSON(&req); err == nil {
			reason = req.Reason
		}
	}

	if err := wc.Waitlist.Remove(c.Request.Context(), c.Param("id"), reason, middlewares.CurrentUserID(c)); err != nil {
		respondServiceError(c, wc.Log, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Removed from waitlist", nil)
}

func (wc *WaitlistController) GetWaitlistStats(c *gin.Context) {
	stats, err := wc.Waitlist.Stats(c.Request.Context())
	if err != nil {
		respondServiceError(c, wc.Log, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Waitlist statistics", gin.H{"stats": stats})
}
