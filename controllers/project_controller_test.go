package controllers

import (
	"bufio"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/profilecraft/profilecraft/audit"
	"github.com/profilecraft/profilecraft/models"
	"github.com/profilecraft/profilecraft/views"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	gdb, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	return gdb, mock
}

func newTestRouter(t *testing.T, db *gorm.DB, auditDir string) (*gin.Engine, *audit.Logger) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	recorder := views.NewRecorder(db, 24*time.Hour, zap.NewNop().Sugar())
	auditor := audit.New(auditDir, 32, zap.NewNop().Sugar())
	pc := NewProjectController(db, recorder, auditor)

	r := gin.New()
	r.GET("/api/v1/projects/:id", pc.GetProject)
	r.GET("/api/v1/users/:id/projects", pc.ListUserProjects)
	return r, auditor
}

func projectRows() *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{"id", "user_id", "title", "summary", "content", "tags", "views", "created_at", "updated_at"}).
		AddRow(1, 7, "Telemetry Dashboard", "Realtime charts", "...", "go,react", 41, now, now)
}

func userRows() *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{"id", "username", "display_name", "created_at", "updated_at"}).
		AddRow(7, "owner", "Portfolio Owner", now, now)
}

func TestGetProjectRecordsView(t *testing.T) {
	db, mock := newMockDB(t)
	r, auditor := newTestRouter(t, db, t.TempDir())
	defer auditor.Close()

	mock.ExpectQuery("SELECT \\* FROM `projects`").WillReturnRows(projectRows())
	mock.ExpectQuery("SELECT \\* FROM `users`").WillReturnRows(userRows())
	mock.ExpectQuery("SELECT count\\(\\*\\) FROM `view_events`").
		WillReturnRows(sqlmock.NewRows([]string{"count(*)"}).AddRow(0))
	mock.ExpectExec("INSERT INTO `view_events`").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("UPDATE `projects` SET").
		WillReturnResult(sqlmock.NewResult(0, 1))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/projects/1", nil)
	req.Header.Set("X-Real-IP", "9.9.9.9")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Code int `json:"code"`
		Data struct {
			Project     models.Project `json:"project"`
			ViewCounted bool           `json:"view_counted"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 0, resp.Code)
	assert.True(t, resp.Data.ViewCounted)
	// Counter was 41 before this request; the response reflects the increment.
	assert.Equal(t, int64(42), resp.Data.Project.Views)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetProjectDuplicateViewNotCounted(t *testing.T) {
	db, mock := newMockDB(t)
	r, auditor := newTestRouter(t, db, t.TempDir())
	defer auditor.Close()

	mock.ExpectQuery("SELECT \\* FROM `projects`").WillReturnRows(projectRows())
	mock.ExpectQuery("SELECT \\* FROM `users`").WillReturnRows(userRows())
	mock.ExpectQuery("SELECT count\\(\\*\\) FROM `view_events`").
		WillReturnRows(sqlmock.NewRows([]string{"count(*)"}).AddRow(1))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/projects/1", nil)
	req.Header.Set("X-Real-IP", "9.9.9.9")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data struct {
			Project     models.Project `json:"project"`
			ViewCounted bool           `json:"view_counted"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Data.ViewCounted)
	assert.Equal(t, int64(41), resp.Data.Project.Views)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetProjectInvalidID(t *testing.T) {
	db, _ := newMockDB(t)
	r, auditor := newTestRouter(t, db, t.TempDir())
	defer auditor.Close()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/projects/not-a-number", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetProjectNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	r, auditor := newTestRouter(t, db, t.TempDir())
	defer auditor.Close()

	mock.ExpectQuery("SELECT \\* FROM `projects`").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/projects/99", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListUserProjectsSentinelResolutionAudited(t *testing.T) {
	db, mock := newMockDB(t)
	auditDir := t.TempDir()
	r, auditor := newTestRouter(t, db, auditDir)

	mock.ExpectQuery("SELECT \\* FROM `users`").WillReturnRows(userRows())
	mock.ExpectQuery("SELECT \\* FROM `projects`").WillReturnRows(projectRows())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/admin/projects", nil)
	req.Header.Set("X-Real-IP", "9.9.9.9")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())

	// Flush the audit queue, then verify the resolution was recorded.
	auditor.Close()
	f, err := os.Open(filepath.Join(auditDir, audit.FileName))
	require.NoError(t, err)
	defer f.Close()

	sc := bufio.NewScanner(f)
	require.True(t, sc.Scan())
	var e audit.Entry
	require.NoError(t, json.Unmarshal(sc.Bytes(), &e))

	assert.Equal(t, "sentinel_user_resolved", e.Action)
	require.NotNil(t, e.InputUserID)
	assert.Equal(t, models.SentinelUserID, *e.InputUserID)
	require.NotNil(t, e.ResolvedUserID)
	assert.Equal(t, "7", *e.ResolvedUserID)
	require.NotNil(t, e.Route)
	assert.Equal(t, "/api/v1/users/admin/projects", *e.Route)
}

func TestListUserProjectsNumericIDNotAudited(t *testing.T) {
	db, mock := newMockDB(t)
	auditDir := t.TempDir()
	r, auditor := newTestRouter(t, db, auditDir)

	mock.ExpectQuery("SELECT \\* FROM `projects`").WillReturnRows(projectRows())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/7/projects", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())

	auditor.Close()
	_, err := os.Stat(filepath.Join(auditDir, audit.FileName))
	assert.True(t, os.IsNotExist(err))
}

func TestListUserProjectsInvalidID(t *testing.T) {
	db, _ := newMockDB(t)
	r, auditor := newTestRouter(t, db, t.TempDir())
	defer auditor.Close()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/nope/projects", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestParsePagination(t *testing.T) {
	tests := []struct {
		page, size string
		wantPage   int
		wantSize   int
	}{
		{"", "", 1, 20},
		{"2", "50", 2, 50},
		{"0", "-1", 1, 20},
		{"3", "1000", 3, 100},
		{"abc", "xyz", 1, 20},
	}
	for _, tt := range tests {
		page, size := parsePagination(tt.page, tt.size)
		assert.Equal(t, tt.wantPage, page)
		assert.Equal(t, tt.wantSize, size)
	}
}
