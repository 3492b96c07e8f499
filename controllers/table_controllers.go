package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sarthaktajane07/DineFlow/middlewares"
	"github.com/sarthaktajane07/DineFlow/models"
	"github.com/sarthaktajane07/DineFlow/services"
	"github.com/sarthaktajane07/DineFlow/utils"
	"github.com/sirupsen/logrus"
)

type TableController struct {
	Tables *services.TableService
	Log    logrus.FieldLogger
}

func NewTableController(tables *services.TableService, log logrus.FieldLogger) *TableController {
	return &TableController{Tables: tables, Log: log}
}

// GetAllTables -> GET /api/tables?status=&zone=&isActive=
func (tc *TableController) GetAllTables(c *gin.Context) {
	filter := services.TableFilter{
		Status: c.Query("status"),
		Zone:   c.Query("zone"),
	}
	if raw := c.Query("isActive"); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			utils.RespondError(c, http.StatusBadRequest, errors.New("isActive must be true or false"))
			return
		}
		filter.IsActive = &active
	}

	tables, err := tc.Tables.List(c.Request.Context(), filter)
	if err != nil {
		respondServiceError(c, tc.Log, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of tables", gin.H{"count": len(tables), "tables": tables})
}

func (tc *TableController) GetTable(c *gin.Context) {
	table, err := tc.Tables.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondServiceError(c, tc.Log, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Table detail", gin.H{"table": table})
}

// CreateTable -> POST /api/tables. Any role may add a table to the default
// zone; placing it elsewhere is zone management and manager only.
func (tc *TableController) CreateTable(c *gin.Context) {
	var req services.CreateTableInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	zone := strings.TrimSpace(req.Zone)
	if zone != "" && zone != services.DefaultZone && !middlewares.HasRole(c, models.RoleManager) {
		utils.RespondError(c, http.StatusForbidden, errors.New("only managers can place a table in a zone"))
		return
	}

	table, err := tc.Tables.Create(c.Request.Context(), req, middlewares.CurrentUserID(c))
	if err != nil {
		respondServiceError(c, tc.Log, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Table created successfully", gin.H{"table": table})
}

// UpdateTable -> PUT /api/tables/:id. Zone changes are manager only.
func (tc *TableController) UpdateTable(c *gin.Context) {
	var req services.UpdateTableInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	if req.Zone != nil && !middlewares.HasRole(c, models.RoleManager) {
		utils.RespondError(c, http.StatusForbidden, errors.New("only managers can change a table's zone"))
		return
	}

	table, err := tc.Tables.Update(c.Request.Context(), c.Param("id"), req, middlewares.CurrentUserID(c))
	if err != nil {
		respondServiceError(c, tc.Log, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Table updated successfully", gin.H{"table": table})
}

func (tc *TableController) DeleteTable(c *gin.Context) {
	if _, err := tc.Tables.Delete(c.Request.Context(), c.Param("id"), middlewares.CurrentUserID(c)); err != nil {
		respondServiceError(c, tc.Log, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Table deleted successfully", nil)
}

func (tc *TableController) GetTableStats(c *gin.Context) {
	stats, err := tc.Tables.Stats(c.Request.Context())
	if err != nil {
		respondServiceError(c, tc.Log, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Table statistics", gin.H{"stats": stats})
}
