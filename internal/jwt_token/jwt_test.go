package jwttoken

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "rollcall/pkg/domain"
	dErrors "rollcall/pkg/domain-errors"
)

var jwtService = NewJWTService(
	"test-signing-key",
	"test-issuer",
	"test-audience",
)

func testStudent() id.Principal {
	return id.Principal{
		ID:           id.PrincipalID(uuid.New()),
		Name:         "Ada",
		Role:         id.RoleStudent,
		CollegeID:    id.CollegeID(uuid.New()),
		DepartmentID: id.DepartmentID(uuid.New()),
		Year:         "2nd",
		Section:      "B",
	}
}

func Test_GenerateAndValidate(t *testing.T) {
	student := testStudent()
	token, err := jwtService.GenerateAccessToken(student, time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := jwtService.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, student.ID.String(), claims.RegisteredClaims.Subject)
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt.Time, time.Minute)

	p, err := claims.Principal()
	require.NoError(t, err)
	assert.Equal(t, student, p)
}

func Test_ValidateToken_InvalidToken(t *testing.T) {
	_, err := jwtService.ValidateToken("invalid-token-string")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func Test_ValidateToken_ExpiredToken(t *testing.T) {
	token, err := jwtService.GenerateAccessToken(testStudent(), -time.Hour)
	require.NoError(t, err)

	_, err = jwtService.ValidateToken(token)
	require.Error(t, err)
	assert.Equal(t, "token has expired", dErrors.MessageOf(err))
}

func Test_ValidateToken_WrongIssuer(t *testing.T) {
	other := NewJWTService("test-signing-key", "someone-else", "test-audience")
	token, err := other.GenerateAccessToken(testStudent(), time.Hour)
	require.NoError(t, err)

	_, err = jwtService.ValidateToken(token)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func Test_Principal_RejectsUnknownRole(t *testing.T) {
	claims := &Claims{Role: "janitor"}
	claims.RegisteredClaims.Subject = uuid.NewString()
	_, err := claims.Principal()
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func Test_PrincipalValidator(t *testing.T) {
	student := testStudent()
	token, err := jwtService.GenerateAccessToken(student, time.Hour)
	require.NoError(t, err)

	p, err := NewPrincipalValidator(jwtService).ValidatePrincipal(token)
	require.NoError(t, err)
	assert.Equal(t, student.ID, p.ID)
	assert.Equal(t, id.RoleStudent, p.Role)
}
