package controllers_test

import (
	"net/http"
	"testing"

	"github.com/sarthaktajane07/DineFlow/models"
	"github.com/sarthaktajane07/DineFlow/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTable(t *testing.T, s *testServer, number string, seats int) models.Table {
	t.Helper()
	w, resp := s.do(t, http.MethodPost, "/tables", models.RoleManager, map[string]interface{}{
		"tableNumber": number,
		"seats":       seats,
		"zone":        "patio",
		"shape":       "round",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var table models.Table
	decodeField(t, resp.Data, "table", &table)
	return table
}

func TestCreateAndListTables(t *testing.T) {
	s := setupServer(t)

	created := createTable(t, s, "A1", 4)
	assert.Equal(t, models.TableFree, created.Status)
	assert.Equal(t, "patio", created.Zone)
	assert.True(t, created.IsActive)
	createTable(t, s, "A2", 2)

	w, resp := s.do(t, http.MethodGet, "/tables", models.RoleStaff, nil)
	expectStatus(t, w, http.StatusOK)
	assert.True(t, resp.Status)
	assert.Equal(t, "List of tables", resp.Message)

	var tables []models.Table
	decodeField(t, resp.Data, "tables", &tables)
	require.Len(t, tables, 2)
	assert.Equal(t, "A1", tables[0].TableNumber)
}

func TestCreateTableValidation(t *testing.T) {
	s := setupServer(t)

	w, resp := s.do(t, http.MethodPost, "/tables", models.RoleManager, map[string]interface{}{
		"tableNumber": "",
		"seats":       30,
		"shape":       "hexagon",
	})
	expectStatus(t, w, http.StatusBadRequest)
	assert.False(t, resp.Status)
	assert.Contains(t, resp.Errors, "tableNumber")
	assert.Contains(t, resp.Errors, "seats")
	assert.Contains(t, resp.Errors, "shape")
}

func TestCreateTableDuplicateNumber(t *testing.T) {
	s := setupServer(t)
	createTable(t, s, "B1", 4)

	w, _ := s.do(t, http.MethodPost, "/tables", models.RoleManager, map[string]interface{}{
		"tableNumber": "B1",
		"seats":       4,
	})
	expectStatus(t, w, http.StatusConflict)
}

func TestGetTableNotFound(t *testing.T) {
	s := setupServer(t)

	w, resp := s.do(t, http.MethodGet, "/tables/does-not-exist", models.RoleStaff, nil)
	expectStatus(t, w, http.StatusNotFound)
	assert.False(t, resp.Status)
}

func TestListTablesRejectsBadIsActive(t *testing.T) {
	s := setupServer(t)

	w, _ := s.do(t, http.MethodGet, "/tables?isActive=maybe", models.RoleStaff, nil)
	expectStatus(t, w, http.StatusBadRequest)
}

func TestUpdateTableZoneIsManagerOnly(t *testing.T) {
	s := setupServer(t)
	table := createTable(t, s, "C1", 4)

	w, _ := s.do(t, http.MethodPut, "/tables/"+table.ID, models.RoleHost, map[string]interface{}{"zone": "bar"})
	expectStatus(t, w, http.StatusForbidden)

	w, resp := s.do(t, http.MethodPut, "/tables/"+table.ID, models.RoleManager, map[string]interface{}{"zone": "bar"})
	expectStatus(t, w, http.StatusOK)
	var updated models.Table
	decodeField(t, resp.Data, "table", &updated)
	assert.Equal(t, "bar", updated.Zone)
}

func TestUpdateTableToOccupiedIsRejected(t *testing.T) {
	s := setupServer(t)
	table := createTable(t, s, "D1", 4)

	w, _ := s.do(t, http.MethodPut, "/tables/"+table.ID, models.RoleStaff, map[string]interface{}{"status": "occupied"})
	expectStatus(t, w, http.StatusConflict)

	w, resp := s.do(t, http.MethodPut, "/tables/"+table.ID, models.RoleStaff, map[string]interface{}{"status": "reserved"})
	expectStatus(t, w, http.StatusOK)
	var updated models.Table
	decodeField(t, resp.Data, "table", &updated)
	assert.Equal(t, models.TableReserved, updated.Status)
}

func TestDeleteOccupiedTableConflicts(t *testing.T) {
	s := setupServer(t)
	table := createTable(t, s, "E1", 4)
	entry := addGuest(t, s, "Ada", 2)

	w, _ := s.do(t, http.MethodPost, "/waitlist/"+entry.ID+"/seat", models.RoleHost, map[string]string{"tableId": table.ID})
	expectStatus(t, w, http.StatusOK)

	w, resp := s.do(t, http.MethodDelete, "/tables/"+table.ID, models.RoleManager, nil)
	expectStatus(t, w, http.StatusConflict)
	assert.False(t, resp.Status)

	w, _ = s.do(t, http.MethodPut, "/tables/"+table.ID, models.RoleStaff, map[string]interface{}{"status": "free"})
	expectStatus(t, w, http.StatusOK)

	w, _ = s.do(t, http.MethodDelete, "/tables/"+table.ID, models.RoleManager, nil)
	expectStatus(t, w, http.StatusOK)

	w, resp = s.do(t, http.MethodGet, "/tables/"+table.ID, models.RoleStaff, nil)
	expectStatus(t, w, http.StatusOK)
	var deleted models.Table
	decodeField(t, resp.Data, "table", &deleted)
	assert.False(t, deleted.IsActive)
}

func TestTableStats(t *testing.T) {
	s := setupServer(t)
	first := createTable(t, s, "F1", 4)
	createTable(t, s, "F2", 4)
	entry := addGuest(t, s, "Grace", 3)

	w, _ := s.do(t, http.MethodPost, "/waitlist/"+entry.ID+"/seat", models.RoleHost, map[string]string{"tableId": first.ID})
	expectStatus(t, w, http.StatusOK)

	w, resp := s.do(t, http.MethodGet, "/tables/stats/overview", models.RoleStaff, nil)
	expectStatus(t, w, http.StatusOK)

	var stats services.TableStats
	decodeField(t, resp.Data, "stats", &stats)
	assert.EqualValues(t, 2, stats.Total)
	assert.EqualValues(t, 1, stats.Occupied)
	assert.EqualValues(t, 1, stats.Free)
	assert.Equal(t, 50.0, stats.OccupancyRate)
}

func TestCreateTableZoneIsManagerOnly(t *testing.T) {
	s := setupServer(t)

	w, resp := s.do(t, http.MethodPost, "/tables", models.RoleStaff, map[string]interface{}{
		"tableNumber": "S1",
		"seats":       2,
	})
	expectStatus(t, w, http.StatusCreated)
	var table models.Table
	decodeField(t, resp.Data, "table", &table)
	assert.Equal(t, services.DefaultZone, table.Zone)

	w, _ = s.do(t, http.MethodPost, "/tables", models.RoleHost, map[string]interface{}{
		"tableNumber": "S2",
		"seats":       2,
		"zone":        "patio",
	})
	expectStatus(t, w, http.StatusForbidden)
}
