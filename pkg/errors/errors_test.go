package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"team-governance/internal/domain"
)

func TestFromDomain(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		statusCode int
		errType    ErrorType
		code       string
	}{
		{"not captain", domain.ErrNotCaptain, http.StatusForbidden, ErrorTypeAuthorization, "NOT_CAPTAIN"},
		{"not found", domain.ErrTeamNotFound, http.StatusNotFound, ErrorTypeNotFound, "TEAM_NOT_FOUND"},
		{"busy", domain.ErrTeamBusy, http.StatusServiceUnavailable, ErrorTypeUnavailable, "TEAM_BUSY"},
		{"ledger unavailable", domain.ErrLedgerUnavailable, http.StatusServiceUnavailable, ErrorTypeUnavailable, "LEDGER_UNAVAILABLE"},
		{"percentages", domain.ErrInvalidPercentage, http.StatusUnprocessableEntity, ErrorTypeUnprocessable, "INVALID_PERCENTAGE"},
		{"exceeds cap", domain.ErrExceedsCap, http.StatusUnprocessableEntity, ErrorTypeUnprocessable, "EXCEEDS_CAP"},
		{"invalid vote", domain.ErrInvalidVote, http.StatusBadRequest, ErrorTypeValidation, "INVALID_VOTE"},
		{"capacity", domain.ErrTeamCapacityFull, http.StatusConflict, ErrorTypeConflict, "TEAM_CAPACITY_FULL"},
		{"already voted", domain.ErrAlreadyVoted, http.StatusConflict, ErrorTypeConflict, "ALREADY_VOTED"},
		{"duplicate", domain.ErrDuplicateTeam, http.StatusConflict, ErrorTypeConflict, "DUPLICATE_TEAM"},
		{"funds", domain.ErrInsufficientFunds, http.StatusConflict, ErrorTypeConflict, "INSUFFICIENT_FUNDS"},
		{"wrapped", fmt.Errorf("reward transfer failed: %w", domain.ErrInsufficientFunds), http.StatusConflict, ErrorTypeConflict, "INSUFFICIENT_FUNDS"},
		{"unknown", errors.New("connection reset"), http.StatusInternalServerError, ErrorTypeInternal, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			appErr := FromDomain(tt.err)

			require.NotNil(t, appErr)
			assert.Equal(t, tt.statusCode, appErr.StatusCode)
			assert.Equal(t, tt.errType, appErr.Type)
			assert.Equal(t, tt.code, appErr.Code)
			assert.ErrorIs(t, appErr, tt.err)
		})
	}
}

func TestFromDomain_PassThrough(t *testing.T) {
	assert.Nil(t, FromDomain(nil))

	original := NewAuthenticationError("Token has expired")
	assert.Same(t, original, FromDomain(fmt.Errorf("auth: %w", original)))
}

func TestAppError_Error(t *testing.T) {
	assert.Equal(t, "not_found: team not found", NewNotFoundError("team not found").Error())
	assert.Equal(t, "internal: boom (disk full)", NewInternalError("boom", errors.New("disk full")).Error())
}

func TestNewErrorResponse(t *testing.T) {
	appErr := FromDomain(domain.ErrNotCaptain)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	body, err := json.Marshal(NewErrorResponse(appErr, "req-1", now))
	require.NoError(t, err)

	assert.JSONEq(t, `{"error":{
		"type":"authorization",
		"code":"NOT_CAPTAIN",
		"message":"only the captain can perform this action",
		"request_id":"req-1",
		"timestamp":"2024-05-01T12:00:00Z"
	}}`, string(body))
}
