package service

import (
	"context"
	"testing"
	"time"

	"openlearn/course-app/internal/domain"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func newAuthFixture() (AuthService, *fakeUserRepo) {
	users := newFakeUserRepo()
	return NewAuthService(users, "test-secret", time.Hour), users
}

func TestRegisterAndLogin(t *testing.T) {
	svc, _ := newAuthFixture()

	user, err := svc.Register(context.Background(), "Ada", "ada@example.com", "password123", domain.RoleTeacher)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleTeacher, user.Role)
	assert.Empty(t, user.PasswordHash)

	token, logged, err := svc.Login(context.Background(), "ada@example.com", "password123")
	require.NoError(t, err)
	assert.Equal(t, user.ID, logged.ID)
	assert.Empty(t, logged.PasswordHash)

	claims := &jwtClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return []byte("test-secret"), nil
	})
	require.NoError(t, err)
	assert.True(t, parsed.Valid)
	assert.Equal(t, user.ID.Hex(), claims.UserID)
	assert.Equal(t, domain.RoleTeacher, claims.Role)
	assert.Equal(t, "course-app", claims.Issuer)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _ := newAuthFixture()

	_, err := svc.Register(context.Background(), "Ada", "ada@example.com", "password123", domain.RoleStudent)
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), "Imposter", "ada@example.com", "other", domain.RoleStudent)
	assert.ErrorIs(t, err, ErrUserAlreadyExists)
}

func TestRegisterRejectsUnknownRole(t *testing.T) {
	svc, _ := newAuthFixture()

	_, err := svc.Register(context.Background(), "Ada", "ada@example.com", "password123", domain.Role("admin"))
	assert.ErrorIs(t, err, ErrInvalidRole)
}

func TestLoginFailures(t *testing.T) {
	svc, _ := newAuthFixture()

	_, err := svc.Register(context.Background(), "Ada", "ada@example.com", "password123", domain.RoleStudent)
	require.NoError(t, err)

	_, _, err = svc.Login(context.Background(), "ada@example.com", "wrong")
	assert.ErrorIs(t, err, ErrAuthenticationFailed)

	_, _, err = svc.Login(context.Background(), "nobody@example.com", "password123")
	assert.ErrorIs(t, err, ErrAuthenticationFailed)
}

func TestEnrollStudent(t *testing.T) {
	svc, users := newAuthFixture()

	student, err := svc.Register(context.Background(), "Sam", "sam@example.com", "password123", domain.RoleStudent)
	require.NoError(t, err)
	teacher, err := svc.Register(context.Background(), "Ada", "ada@example.com", "password123", domain.RoleTeacher)
	require.NoError(t, err)

	courseID := primitive.NewObjectID()
	require.NoError(t, svc.EnrollStudent(context.Background(), student.ID, courseID))

	// Enrolling twice leaves a single entry.
	require.NoError(t, svc.EnrollStudent(context.Background(), student.ID, courseID))
	stored, err := users.GetByID(context.Background(), student.ID)
	require.NoError(t, err)
	assert.Equal(t, []primitive.ObjectID{courseID}, stored.EnrolledCourseIDs)

	err = svc.EnrollStudent(context.Background(), teacher.ID, courseID)
	assert.Error(t, err)
}
