package controllers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sarthaktajane07/DineFlow/controllers"
	"github.com/sarthaktajane07/DineFlow/database"
	"github.com/sarthaktajane07/DineFlow/middlewares"
	"github.com/sarthaktajane07/DineFlow/services"
	"github.com/sarthaktajane07/DineFlow/utils"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type envelope struct {
	Status  bool              `json:"status"`
	Message string            `json:"message"`
	Data    json.RawMessage   `json:"data"`
	Errors  map[string]string `json:"errors"`
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

// fakeAuth stands in for the JWT middleware: the caller's role and id come
// from test headers.
func fakeAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if role := c.GetHeader("X-Test-Role"); role != "" {
			c.Set(middlewares.ContextRole, role)
			c.Set(middlewares.ContextUserID, c.GetHeader("X-Test-User"))
		}
		c.Next()
	}
}

type testServer struct {
	db       *gorm.DB
	engine   *gin.Engine
	tables   *services.TableService
	waitlist *services.WaitlistService
}

func setupServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := setupTestDB(t)
	log := utils.DiscardLogger()
	deps := services.Deps{DB: db, Log: log}

	recorder := services.NewActivityRecorder(db, nil, log)
	deps.Recorder = recorder
	tables := services.NewTableService(deps)
	waitlist := services.NewWaitlistService(deps, services.NewCoordinator(deps))

	tableCtrl := controllers.NewTableController(tables, log)
	waitlistCtrl := controllers.NewWaitlistController(waitlist, log)
	activityCtrl := controllers.NewActivityController(recorder, log)

	r := gin.New()
	r.Use(fakeAuth())
	r.GET("/tables", tableCtrl.GetAllTables)
	r.GET("/tables/stats/overview", tableCtrl.GetTableStats)
	r.GET("/tables/:id", tableCtrl.GetTable)
	r.POST("/tables", tableCtrl.CreateTable)
	r.PUT("/tables/:id", tableCtrl.UpdateTable)
	r.DELETE("/tables/:id", tableCtrl.DeleteTable)
	r.GET("/waitlist", waitlistCtrl.GetWaitlist)
	r.GET("/waitlist/stats/overview", waitlistCtrl.GetWaitlistStats)
	r.GET("/waitlist/:id", waitlistCtrl.GetEntry)
	r.POST("/waitlist", waitlistCtrl.AddToWaitlist)
	r.PUT("/waitlist/:id", waitlistCtrl.UpdateEntry)
	r.DELETE("/waitlist/:id", waitlistCtrl.RemoveFromWaitlist)
	r.POST("/waitlist/:id/notify", waitlistCtrl.NotifyGuest)
	r.POST("/waitlist/:id/seat", waitlistCtrl.SeatGuest)
	r.GET("/activities", activityCtrl.GetActivities)

	return &testServer{db: db, engine: r, tables: tables, waitlist: waitlist}
}

func (s *testServer) do(t *testing.T, method, path, role string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if role != "" {
		req.Header.Set("X-Test-Role", role)
		req.Header.Set("X-Test-User", "user-"+role)
	}

	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	var resp envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return w, resp
}

func decodeField(t *testing.T, data json.RawMessage, field string, dest interface{}) {
	t.Helper()
	var m map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &m))
	require.Contains(t, m, field)
	require.NoError(t, json.Unmarshal(m[field], dest))
}

func expectStatus(t *testing.T, w *httptest.ResponseRecorder, code int) {
	t.Helper()
	require.Equal(t, code, w.Code, w.Body.String())
}
