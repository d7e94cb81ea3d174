package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/sgac-unsa/sgac-api/internal/models"
	"github.com/sgac-unsa/sgac-api/internal/service"
)

type semesterRepoMock struct {
	semesters map[string]*models.Semester
	nextID    int
}

func newSemesterRepoMock() *semesterRepoMock {
	return &semesterRepoMock{semesters: map[string]*models.Semester{}, nextID: 1}
}

func (m *semesterRepoMock) List(ctx context.Context) ([]models.Semester, error) {
	out := make([]models.Semester, 0, len(m.semesters))
	for _, s := range m.semesters {
		out = append(out, *s)
	}
	return out, nil
}

func (m *semesterRepoMock) FindByID(ctx context.Context, id string) (*models.Semester, error) {
	if s, ok := m.semesters[id]; ok {
		copied := *s
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (m *semesterRepoMock) FindActive(ctx context.Context) (*models.Semester, error) {
	for _, s := range m.semesters {
		if s.IsActive {
			copied := *s
			return &copied, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *semesterRepoMock) Create(ctx context.Context, semester *models.Semester) error {
	semester.ID = "sem-" + string(rune('0'+m.nextID))
	m.nextID++
	semester.CreatedAt = time.Now()
	stored := *semester
	m.semesters[semester.ID] = &stored
	return nil
}

func (m *semesterRepoMock) Update(ctx context.Context, semester *models.Semester) error {
	stored := *semester
	m.semesters[semester.ID] = &stored
	return nil
}

func (m *semesterRepoMock) Activate(ctx context.Context, id string) error {
	for _, s := range m.semesters {
		s.IsActive = s.ID == id
	}
	return nil
}

func newGinContext(method, path string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	return c, w
}

func TestSemesterHandlerCreate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := newSemesterRepoMock()
	h := NewSemesterHandler(service.NewSemesterService(repo, nil, nil))

	payload, _ := json.Marshal(models.CreateSemesterInput{
		Name:      "2024-B",
		StartDate: "2024-08-19",
		EndDate:   "2024-12-20",
	})
	c, w := newGinContext(http.MethodPost, "/semesters", payload)

	h.Create(c)
	require.Equal(t, http.StatusCreated, w.Code)

	var body struct {
		Data models.Semester `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, "2024-B", body.Data.Name)
	require.NotEmpty(t, body.Data.ID)
}

func TestSemesterHandlerCreateRejectsBadDates(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := newSemesterRepoMock()
	h := NewSemesterHandler(service.NewSemesterService(repo, nil, nil))

	payload, _ := json.Marshal(models.CreateSemesterInput{
		Name:      "2024-B",
		StartDate: "2024-12-20",
		EndDate:   "2024-08-19",
	})
	c, w := newGinContext(http.MethodPost, "/semesters", payload)

	h.Create(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Empty(t, repo.semesters)
}

func TestSemesterHandlerActivate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := newSemesterRepoMock()
	svc := service.NewSemesterService(repo, nil, nil)
	h := NewSemesterHandler(svc)

	created, err := svc.Create(context.Background(), models.CreateSemesterInput{
		Name:      "2024-B",
		StartDate: "2024-08-19",
		EndDate:   "2024-12-20",
	})
	require.NoError(t, err)

	c, w := newGinContext(http.MethodPost, "/semesters/"+created.ID+"/activate", nil)
	c.Params = gin.Params{{Key: "id", Value: created.ID}}

	h.Activate(c)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Data models.Semester `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.True(t, body.Data.IsActive)
}
