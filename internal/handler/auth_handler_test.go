package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/classmark/classmark-api/internal/middleware"
	"github.com/classmark/classmark-api/internal/models"
	"github.com/classmark/classmark-api/internal/service"
)

type stubAuthenticator struct {
	match bool
}

func (s *stubAuthenticator) Authenticate(ctx context.Context, name, pin string) (bool, error) {
	return s.match, nil
}

type stubCounter struct {
	count int
}

func (s *stubCounter) CountByStudent(ctx context.Context, partitionID, studentName string) (int, error) {
	return s.count, nil
}

func newAccessService(match bool, count int) *service.AccessService {
	return service.NewAccessService(&stubAuthenticator{match: match}, &stubCounter{count: count}, validator.New(), zap.NewNop(), service.AccessConfig{
		TeacherPin:  "424242",
		PartitionID: "class-a",
		JWTSecret:   "secret",
		TokenExpiry: time.Hour,
		Issuer:      "classmark-api",
	})
}

func postJSON(t *testing.T, handle gin.HandlerFunc, path string, payload interface{}) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	body, err := json.Marshal(payload)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	handle(c)
	return rec
}

func TestAuthHandlerStudentLogin(t *testing.T) {
	handler := NewAuthHandler(newAccessService(true, 1))

	rec := postJSON(t, handler.StudentLogin, "/auth/student/login", models.StudentLoginRequest{Name: "Chen", Pin: "123456"})
	assert.Equal(t, http.StatusOK, rec.Code)

	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "STUDENT", envelope.Data["role"])
	assert.Equal(t, "Chen", envelope.Data["student_name"])
	assert.NotEmpty(t, envelope.Data["access_token"])
}

func TestAuthHandlerStudentLoginRejected(t *testing.T) {
	handler := NewAuthHandler(newAccessService(false, 1))

	rec := postJSON(t, handler.StudentLogin, "/auth/student/login", models.StudentLoginRequest{Name: "Chen", Pin: "123456"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthHandlerStudentLoginNoRecords(t *testing.T) {
	handler := NewAuthHandler(newAccessService(true, 0))

	rec := postJSON(t, handler.StudentLogin, "/auth/student/login", models.StudentLoginRequest{Name: "Chen", Pin: "123456"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthHandlerTeacherLogin(t *testing.T) {
	handler := NewAuthHandler(newAccessService(false, 0))

	rec := postJSON(t, handler.TeacherLogin, "/auth/teacher/login", models.TeacherLoginRequest{Pin: "424242"})
	assert.Equal(t, http.StatusOK, rec.Code)

	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "TEACHER", envelope.Data["role"])
}

func TestAuthHandlerTeacherLoginWrongPin(t *testing.T) {
	handler := NewAuthHandler(newAccessService(false, 0))

	rec := postJSON(t, handler.TeacherLogin, "/auth/teacher/login", models.TeacherLoginRequest{Pin: "111111"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthHandlerSession(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewAuthHandler(newAccessService(false, 0))

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/auth/session", nil)
	c.Set(middleware.ContextSessionKey, &models.JWTClaims{Role: models.RoleStudent, StudentName: "Chen"})

	handler.Session(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "STUDENT", envelope.Data["role"])
	assert.Equal(t, "Chen", envelope.Data["student_name"])
}

func TestAuthHandlerSessionMissingClaims(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewAuthHandler(newAccessService(false, 0))

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/auth/session", nil)

	handler.Session(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

type responseEnvelope struct {
	Data map[string]interface{} `json:"data"`
	Meta map[string]interface{} `json:"meta"`
}
