package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sarthaktajane07/DineFlow/services"
	"github.com/sarthaktajane07/DineFlow/utils"
	"github.com/sirupsen/logrus"
)

// respondServiceError maps core errors onto the response envelope. Anything
// unrecognised is logged and reported as a generic server fault.
func respondServiceError(c *gin.Context, log logrus.FieldLogger, err error) {
	var (
		notFound   *services.NotFoundError
		conflict   *services.ConflictError
		invalid    *services.InvalidStateError
		validation *services.ValidationError
	)

	switch {
	case errors.As(err, &validation):
		utils.RespondFieldErrors(c, http.StatusBadRequest, "validation failed", validation.Fields)
	case errors.As(err, &notFound):
		utils.RespondError(c, http.StatusNotFound, err)
	case errors.As(err, &conflict):
		utils.RespondError(c, http.StatusConflict, err)
	case errors.As(err, &invalid):
		utils.RespondError(c, http.StatusBadRequest, err)
	case errors.Is(err, services.ErrInvalidCredentials), errors.Is(err, services.ErrIncorrectPassword):
		utils.RespondError(c, http.StatusUnauthorized, err)
	default:
		log.WithError(err).WithField("path", c.FullPath()).Error("Unhandled error")
		utils.RespondError(c, http.StatusInternalServerError, errors.New("internal server error"))
	}
}

func respondBindError(c *gin.Context, err error) {
	utils.RespondError(c, http.StatusBadRequest, errors.New("invalid request body: "+err.Error()))
}
