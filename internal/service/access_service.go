package service

import (
	"context"
	"crypto/subtle"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/classmark/classmark-api/internal/models"
	appErrors "github.com/classmark/classmark-api/pkg/errors"
)

type studentAuthenticator interface {
	Authenticate(ctx context.Context, name, pin string) (bool, error)
}

type gradeRecordCounter interface {
	CountByStudent(ctx context.Context, partitionID, studentName string) (int, error)
}

// AccessConfig defines configuration for session classification.
type AccessConfig struct {
	TeacherPin  string
	PartitionID string
	JWTSecret   string
	TokenExpiry time.Duration
	Issuer      string
}

// AccessService classifies sessions: student via issued credentials plus at
// least one grade record, teacher via the shared management pin. Sessions
// are stateless JWTs; logout is client-side token discard.
type AccessService struct {
	credentials studentAuthenticator
	records     gradeRecordCounter
	validator   *validator.Validate
	logger      *zap.Logger
	config      AccessConfig
}

// NewAccessService constructs an AccessService instance.
func NewAccessService(credentials studentAuthenticator, records gradeRecordCounter, validate *validator.Validate, logger *zap.Logger, config AccessConfig) *AccessService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AccessService{credentials: credentials, records: records, validator: validate, logger: logger, config: config}
}

// StudentLogin authenticates a student session. A matching credential with
// zero grade records is treated as a failed login, not an empty session.
func (s *AccessService) StudentLogin(ctx context.Context, req models.StudentLoginRequest) (*models.LoginResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid login payload")
	}

	match, err := s.credentials.Authenticate(ctx, req.Name, req.Pin)
	if err != nil {
		return nil, err
	}
	if !match {
		return nil, appErrors.ErrInvalidCredentials
	}

	count, err := s.records.CountByStudent(ctx, s.config.PartitionID, req.Name)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check grade records")
	}
	if count == 0 {
		return nil, appErrors.ErrInvalidCredentials
	}

	return s.issueToken(models.RoleStudent, req.Name)
}

// TeacherLogin authenticates the management session against the shared pin.
func (s *AccessService) TeacherLogin(ctx context.Context, req models.TeacherLoginRequest) (*models.LoginResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid login payload")
	}

	if subtle.ConstantTimeCompare([]byte(req.Pin), []byte(s.config.TeacherPin)) != 1 {
		return nil, appErrors.ErrInvalidCredentials
	}

	return s.issueToken(models.RoleTeacher, "")
}

// ValidateToken parses and validates a session token returning the claims.
func (s *AccessService) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.JWTSecret), nil
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}

	claims, ok := token.Claims.(*models.JWTClaims)
	if !ok || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}

	return claims, nil
}

func (s *AccessService) issueToken(role models.SessionRole, studentName string) (*models.LoginResponse, error) {
	issuedAt := time.Now().UTC()
	expiresAt := issuedAt.Add(s.config.TokenExpiry)
	claims := &models.JWTClaims{
		Role:        role,
		StudentName: studentName,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.config.Issuer,
			Subject:   studentName,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.config.JWTSecret))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign token")
	}

	return &models.LoginResponse{
		AccessToken: signed,
		ExpiresIn:   int64(s.config.TokenExpiry.Seconds()),
		Role:        role,
		StudentName: studentName,
		IssuedAt:    issuedAt,
	}, nil
}
