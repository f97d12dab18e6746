package service

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-timetable-viewer/internal/models"
	appErrors "github.com/noah-isme/sma-timetable-viewer/pkg/errors"
)

func TestTokenServiceRoundTrip(t *testing.T) {
	svc := NewTokenService("secret")

	token, expires, err := svc.IssueToken("ops", models.RoleScheduler, 30*time.Minute)
	require.NoError(t, err)
	assert.True(t, expires.After(time.Now()))

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "ops", claims.UserID)
	assert.Equal(t, models.RoleScheduler, claims.Role)
}

func TestTokenServiceRejectsForeignSecret(t *testing.T) {
	token, _, err := NewTokenService("other").IssueToken("ops", models.RoleAdmin, time.Minute)
	require.NoError(t, err)

	_, err = NewTokenService("secret").ValidateToken(token)
	assert.True(t, errors.Is(err, appErrors.ErrUnauthorized))
}

func TestTokenServiceRejectsExpired(t *testing.T) {
	svc := NewTokenService("secret")
	svc.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, _, err := svc.IssueToken("ops", models.RoleAdmin, time.Minute)
	require.NoError(t, err)

	svc.now = time.Now
	_, err = svc.ValidateToken(token)
	assert.True(t, errors.Is(err, appErrors.ErrUnauthorized))
}

func TestTokenServiceRequiresUser(t *testing.T) {
	_, _, err := NewTokenService("secret").IssueToken(" ", models.RoleViewer, time.Minute)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}
