package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/classmark/classmark-api/internal/middleware"
	"github.com/classmark/classmark-api/internal/models"
	"github.com/classmark/classmark-api/internal/service"
)

func resultMirror() *stubMirror {
	return &stubMirror{snapshot: []models.GradeRecord{
		{ID: "1", StudentName: "Chen", Exam: "Exam 1", Chinese: 90, Math: 80, English: 70, Science: 60, Social: 50, Essay: 85},
		{ID: "2", StudentName: "Lin", Exam: "Exam 1", Chinese: 70, Math: 70, English: 70, Science: 70, Social: 70, Essay: 40},
	}}
}

func newResultHandler() *ResultHandler {
	svc := service.NewResultService(resultMirror(), nil, nil, zap.NewNop())
	return NewResultHandler(svc)
}

func studentContext(t *testing.T, path string) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, path, nil)
	c.Set(middleware.ContextSessionKey, &models.JWTClaims{Role: models.RoleStudent, StudentName: "Chen"})
	return c, rec
}

func TestResultHandlerMyResult(t *testing.T) {
	handler := newResultHandler()
	c, rec := studentContext(t, "/results/me?exam=Exam+1")

	handler.MyResult(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	record := envelope.Data["record"].(map[string]interface{})
	assert.Equal(t, "Chen", record["student_name"])
	assert.Equal(t, float64(1), envelope.Data["rank"])
}

func TestResultHandlerMyResultUnknownExam(t *testing.T) {
	handler := newResultHandler()
	c, rec := studentContext(t, "/results/me?exam=Final")

	handler.MyResult(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestResultHandlerMyResultNoSession(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newResultHandler()

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/results/me?exam=Exam+1", nil)

	handler.MyResult(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestResultHandlerMyOverview(t *testing.T) {
	handler := newResultHandler()
	c, rec := studentContext(t, "/results/me/overview")

	handler.MyOverview(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	var envelope struct {
		Data []models.StudentExamResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.Len(t, envelope.Data, 1)
	assert.Equal(t, models.Exam("Exam 1"), envelope.Data[0].Record.Exam)
}

func TestResultHandlerExamSummary(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newResultHandler()

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/exams/Exam%201/summary", nil)
	c.Params = gin.Params{{Key: "exam", Value: "Exam 1"}}

	handler.ExamSummary(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, false, envelope.Meta["cache_hit"])
	assert.Equal(t, float64(2), envelope.Data["total_students"])
}

func TestResultHandlerExamRankings(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newResultHandler()

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/exams/Exam%201/rankings", nil)
	c.Params = gin.Params{{Key: "exam", Value: "Exam 1"}}

	handler.ExamRankings(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	var envelope struct {
		Data []models.RankEntry `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.Len(t, envelope.Data, 2)
	assert.Equal(t, "Chen", envelope.Data[0].StudentName)
	assert.Equal(t, 1, envelope.Data[0].Rank)
}
