package google

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"coachsync/internal/domain"

	"github.com/stretchr/testify/assert"
	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"not found", &googleapi.Error{Code: http.StatusNotFound}, domain.ErrRemoteNotFound},
		{"gone", &googleapi.Error{Code: http.StatusGone}, domain.ErrRemoteNotFound},
		{"too many requests", &googleapi.Error{Code: http.StatusTooManyRequests}, domain.ErrRemoteUnavailable},
		{"server error", &googleapi.Error{Code: http.StatusBadGateway}, domain.ErrRemoteUnavailable},
		{"bad request", &googleapi.Error{Code: http.StatusBadRequest}, domain.ErrRemoteRejected},
		{"unauthorized", &googleapi.Error{Code: http.StatusUnauthorized}, domain.ErrRemoteRejected},
		{"forbidden", &googleapi.Error{Code: http.StatusForbidden}, domain.ErrRemoteRejected},
		{
			"forbidden quota",
			&googleapi.Error{Code: http.StatusForbidden, Errors: []googleapi.ErrorItem{{Reason: "userRateLimitExceeded"}}},
			domain.ErrRemoteUnavailable,
		},
		{"token refresh", fmt.Errorf("transport: %w", &oauth2.RetrieveError{}), domain.ErrRemoteRejected},
		{"deadline", context.DeadlineExceeded, domain.ErrRemoteUnavailable},
		{"network", errors.New("dial tcp: connection refused"), domain.ErrRemoteUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classify("test", tt.err)
			assert.ErrorIs(t, got, tt.want)
			assert.ErrorIs(t, got, tt.err)
		})
	}

	assert.NoError(t, classify("test", nil))
}

func TestOutcomeLabel(t *testing.T) {
	assert.Equal(t, "ok", outcomeLabel(nil))
	assert.Equal(t, "not_found", outcomeLabel(domain.ErrRemoteNotFound))
	assert.Equal(t, "rejected", outcomeLabel(domain.ErrRemoteRejected))
	assert.Equal(t, "unavailable", outcomeLabel(domain.ErrRemoteUnavailable))
}
