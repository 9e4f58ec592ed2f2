package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/acolitus/roster-api-go/pkg/database"
	"github.com/acolitus/roster-api-go/pkg/models"
)

func newRouter(t *testing.T) (*gin.Engine, *Handler) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db, err := database.OpenTest()
	require.NoError(t, err)
	h := &Handler{DB: db}

	r := gin.New()
	r.POST("/api/jobs", h.CreateJob)
	r.GET("/api/jobs/:id", h.GetJob)
	r.POST("/api/jobs/run", h.RunJobs)
	return r, h
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCreateAndGetJob(t *testing.T) {
	r, h := newRouter(t)
	require.NoError(t, h.DB.Create(&models.Parish{Name: "St. Mary"}).Error)

	w := doJSON(t, r, http.MethodPost, "/api/jobs", gin.H{"parish_id": 1})
	require.Equal(t, http.StatusCreated, w.Code)

	var job models.ScheduleJob
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &job))
	require.NotEmpty(t, job.PublicID)
	require.Equal(t, models.JobTypeSchedule, job.JobType)
	require.Equal(t, models.JobPending, job.Status)

	w = doJSON(t, r, http.MethodGet, "/api/jobs/"+job.PublicID, nil)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestCreateJobValidation(t *testing.T) {
	r, h := newRouter(t)
	require.NoError(t, h.DB.Create(&models.Parish{Name: "St. Mary"}).Error)

	w := doJSON(t, r, http.MethodPost, "/api/jobs", gin.H{"parish_id": 1, "job_type": "mystery"})
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, http.MethodPost, "/api/jobs", gin.H{"parish_id": 1, "job_type": models.JobTypeReplacement})
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, http.MethodPost, "/api/jobs", gin.H{"parish_id": 99})
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestRunJobsProcessesPending(t *testing.T) {
	r, h := newRouter(t)
	require.NoError(t, h.DB.Create(&models.Parish{Name: "St. Mary", HorizonDays: 60,
		DefaultMassDurationMinutes: 60}).Error)

	w := doJSON(t, r, http.MethodPost, "/api/jobs", gin.H{"parish_id": 1})
	require.Equal(t, http.StatusCreated, w.Code)
	var job models.ScheduleJob
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &job))

	w = doJSON(t, r, http.MethodPost, "/api/jobs/run", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/jobs/"+job.PublicID, nil)
	var got models.ScheduleJob
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	// Empty horizon: nothing to schedule, job still completes.
	require.Equal(t, models.JobSuccess, got.Status)
}
