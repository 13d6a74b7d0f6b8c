package service

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/classmark/classmark-api/internal/models"
	appErrors "github.com/classmark/classmark-api/pkg/errors"
)

type mockAuthenticator struct {
	match bool
	err   error
}

func (m *mockAuthenticator) Authenticate(ctx context.Context, name, pin string) (bool, error) {
	return m.match, m.err
}

type mockRecordCounter struct {
	count int
	err   error
}

func (m *mockRecordCounter) CountByStudent(ctx context.Context, partitionID, studentName string) (int, error) {
	return m.count, m.err
}

func newAccessService(auth *mockAuthenticator, counter *mockRecordCounter) *AccessService {
	return NewAccessService(auth, counter, validator.New(), zap.NewNop(), AccessConfig{
		TeacherPin:  "424242",
		PartitionID: "class-a",
		JWTSecret:   "secret",
		TokenExpiry: time.Hour,
		Issuer:      "classmark-api",
	})
}

func TestAccessServiceStudentLoginSuccess(t *testing.T) {
	svc := newAccessService(&mockAuthenticator{match: true}, &mockRecordCounter{count: 2})

	res, err := svc.StudentLogin(context.Background(), models.StudentLoginRequest{Name: "Chen", Pin: "123456"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleStudent, res.Role)
	assert.Equal(t, "Chen", res.StudentName)

	claims, err := svc.ValidateToken(res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, models.RoleStudent, claims.Role)
	assert.Equal(t, "Chen", claims.StudentName)
}

func TestAccessServiceStudentLoginWrongPin(t *testing.T) {
	svc := newAccessService(&mockAuthenticator{match: false}, &mockRecordCounter{count: 2})

	_, err := svc.StudentLogin(context.Background(), models.StudentLoginRequest{Name: "Chen", Pin: "654321"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestAccessServiceStudentLoginNoGradeRecords(t *testing.T) {
	// A valid credential alone is not enough: the roster may have been
	// edited and the student removed since the pin was issued.
	svc := newAccessService(&mockAuthenticator{match: true}, &mockRecordCounter{count: 0})

	_, err := svc.StudentLogin(context.Background(), models.StudentLoginRequest{Name: "Chen", Pin: "123456"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestAccessServiceStudentLoginMalformedPin(t *testing.T) {
	svc := newAccessService(&mockAuthenticator{match: true}, &mockRecordCounter{count: 1})

	_, err := svc.StudentLogin(context.Background(), models.StudentLoginRequest{Name: "Chen", Pin: "12ab56"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestAccessServiceTeacherLogin(t *testing.T) {
	svc := newAccessService(&mockAuthenticator{}, &mockRecordCounter{})

	res, err := svc.TeacherLogin(context.Background(), models.TeacherLoginRequest{Pin: "424242"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleTeacher, res.Role)
	assert.Empty(t, res.StudentName)

	claims, err := svc.ValidateToken(res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, models.RoleTeacher, claims.Role)
}

func TestAccessServiceTeacherLoginWrongPin(t *testing.T) {
	svc := newAccessService(&mockAuthenticator{}, &mockRecordCounter{})

	_, err := svc.TeacherLogin(context.Background(), models.TeacherLoginRequest{Pin: "111111"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestAccessServiceValidateTokenGarbage(t *testing.T) {
	svc := newAccessService(&mockAuthenticator{}, &mockRecordCounter{})

	_, err := svc.ValidateToken("not-a-token")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestAccessServiceValidateTokenWrongSecret(t *testing.T) {
	svc := newAccessService(&mockAuthenticator{}, &mockRecordCounter{})
	other := NewAccessService(&mockAuthenticator{}, &mockRecordCounter{}, validator.New(), zap.NewNop(), AccessConfig{
		TeacherPin:  "424242",
		PartitionID: "class-a",
		JWTSecret:   "different",
		TokenExpiry: time.Hour,
		Issuer:      "classmark-api",
	})

	res, err := other.TeacherLogin(context.Background(), models.TeacherLoginRequest{Pin: "424242"})
	require.NoError(t, err)

	_, err = svc.ValidateToken(res.AccessToken)
	require.Error(t, err)
}
