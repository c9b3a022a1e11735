package google

import (
	"errors"
	"fmt"
	"net/http"

	"coachsync/internal/domain"

	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
)

// rate limit reasons Google reports with a 403 instead of 429
var quotaReasons = map[string]bool{
	"rateLimitExceeded":     true,
	"userRateLimitExceeded": true,
	"quotaExceeded":         true,
}

// classify maps a Calendar API failure onto the domain error family.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return fmt.Errorf("calendar %s: %w: %w", op, statusError(apiErr), err)
	}

	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		return fmt.Errorf("calendar %s: credential: %w: %w", op, domain.ErrRemoteRejected, err)
	}

	// network failures, timeouts and anything else below HTTP are transient
	return fmt.Errorf("calendar %s: %w: %w", op, domain.ErrRemoteUnavailable, err)
}

func statusError(apiErr *googleapi.Error) error {
	switch code := apiErr.Code; {
	case code == http.StatusNotFound || code == http.StatusGone:
		return domain.ErrRemoteNotFound
	case code == http.StatusTooManyRequests || code >= 500:
		return domain.ErrRemoteUnavailable
	case code == http.StatusForbidden:
		for _, item := range apiErr.Errors {
			if quotaReasons[item.Reason] {
				return domain.ErrRemoteUnavailable
			}
		}
		return domain.ErrRemoteRejected
	default:
		return domain.ErrRemoteRejected
	}
}

// outcomeLabel is the metrics label for a classified error.
func outcomeLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrRemoteNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrRemoteRejected):
		return "rejected"
	default:
		return "unavailable"
	}
}
