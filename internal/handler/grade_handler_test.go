package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/classmark/classmark-api/internal/models"
	"github.com/classmark/classmark-api/internal/service"
)

type stubGradeStore struct {
	records map[string]models.GradeRecord
}

func newStubGradeStore() *stubGradeStore {
	return &stubGradeStore{records: make(map[string]models.GradeRecord)}
}

func (s *stubGradeStore) ListByPartition(ctx context.Context, partitionID string) ([]models.GradeRecord, error) {
	out := make([]models.GradeRecord, 0, len(s.records))
	for _, r := range s.records {
		out = append(out, r)
	}
	return out, nil
}

func (s *stubGradeStore) FindByID(ctx context.Context, partitionID, id string) (*models.GradeRecord, error) {
	r, ok := s.records[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &r, nil
}

func (s *stubGradeStore) FindByStudentExam(ctx context.Context, partitionID, studentName string, exam models.Exam) (*models.GradeRecord, error) {
	for _, r := range s.records {
		if r.StudentName == studentName && r.Exam == exam {
			record := r
			return &record, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *stubGradeStore) Create(ctx context.Context, record *models.GradeRecord) error {
	if record.ID == "" {
		record.ID = "r1"
	}
	s.records[record.ID] = *record
	return nil
}

func (s *stubGradeStore) Update(ctx context.Context, record *models.GradeRecord) error {
	if _, ok := s.records[record.ID]; !ok {
		return sql.ErrNoRows
	}
	s.records[record.ID] = *record
	return nil
}

func (s *stubGradeStore) Delete(ctx context.Context, partitionID, id string) error {
	if _, ok := s.records[id]; !ok {
		return sql.ErrNoRows
	}
	delete(s.records, id)
	return nil
}

type stubIssuer struct{}

func (stubIssuer) IssueIfAbsent(ctx context.Context, studentName string) (string, bool, error) {
	return "123456", true, nil
}

type stubMirror struct {
	snapshot []models.GradeRecord
}

func (s *stubMirror) Snapshot() ([]models.GradeRecord, uint64) {
	return s.snapshot, 1
}

type noopPublisher struct{}

func (noopPublisher) Publish(ctx context.Context, collection, partitionID string) {}

func newGradeHandler(store *stubGradeStore, mirror *stubMirror) *GradeHandler {
	if mirror == nil {
		mirror = &stubMirror{}
	}
	svc := service.NewGradeService(store, stubIssuer{}, mirror, noopPublisher{}, nil, "class-a", validator.New(), zap.NewNop())
	return NewGradeHandler(svc)
}

func gradePayload() map[string]interface{} {
	return map[string]interface{}{
		"student_name": "Chen",
		"exam":         "Exam 1",
		"chinese":      90, "math": 80, "english": 70, "science": 60, "social": 50, "essay": 85,
	}
}

func TestGradeHandlerCreate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newGradeHandler(newStubGradeStore(), nil)

	body, _ := json.Marshal(gradePayload())
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/grades", bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")

	handler.Create(c)

	assert.Equal(t, http.StatusCreated, rec.Code)
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "123456", envelope.Data["issued_pin"])
}

func TestGradeHandlerCreateDuplicate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := newStubGradeStore()
	store.records["existing"] = models.GradeRecord{ID: "existing", PartitionID: "class-a", StudentName: "Chen", Exam: "Exam 1"}
	handler := newGradeHandler(store, nil)

	body, _ := json.Marshal(gradePayload())
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/grades", bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")

	handler.Create(c)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestGradeHandlerCreateMalformedBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newGradeHandler(newStubGradeStore(), nil)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/grades", bytes.NewReader([]byte("{not json")))
	c.Request.Header.Set("Content-Type", "application/json")

	handler.Create(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGradeHandlerList(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mirror := &stubMirror{snapshot: []models.GradeRecord{
		{ID: "1", StudentName: "Chen", Exam: "Exam 1"},
		{ID: "2", StudentName: "Lin", Exam: "Exam 2"},
	}}
	handler := newGradeHandler(newStubGradeStore(), mirror)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/grades?exam=Exam+1", nil)

	handler.List(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	var envelope struct {
		Data []models.GradeRecord `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.Len(t, envelope.Data, 1)
	assert.Equal(t, "1", envelope.Data[0].ID)
}

func TestGradeHandlerUpdateNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newGradeHandler(newStubGradeStore(), nil)

	body, _ := json.Marshal(gradePayload())
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPut, "/grades/missing", bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Params = gin.Params{{Key: "id", Value: "missing"}}

	handler.Update(c)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGradeHandlerDelete(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := newStubGradeStore()
	store.records["r1"] = models.GradeRecord{ID: "r1", PartitionID: "class-a", StudentName: "Chen", Exam: "Exam 1"}
	handler := newGradeHandler(store, nil)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodDelete, "/grades/r1", nil)
	c.Params = gin.Params{{Key: "id", Value: "r1"}}

	handler.Delete(c)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, store.records)
}
