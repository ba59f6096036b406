package googleapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"

	gapi "google.golang.org/api/googleapi"

	"github.com/goliatone/go-fieldvisit/pkg/store"
)

// translateErr maps a Google API failure onto the store error taxonomy so
// callers can branch on kind without knowing which backend produced it.
func translateErr(op, id string, err error) error {
	if err == nil {
		return nil
	}

	var already *store.Error
	if errors.As(err, &already) {
		return err
	}

	var apiErr *gapi.Error
	if errors.As(err, &apiErr) {
		return store.NewError(kindForAPIError(apiErr), op, id, err)
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return store.NewError(store.KindTransient, op, id, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return store.NewError(store.KindTransient, op, id, err)
	}

	return store.NewError(store.KindUnknown, op, id, err)
}

func kindForAPIError(apiErr *gapi.Error) store.Kind {
	switch apiErr.Code {
	case http.StatusUnauthorized:
		return store.KindAuth
	case http.StatusForbidden:
		// 403 covers both hard permission denials and quota pushback; only
		// the rate-limit reasons are worth retrying.
		if hasRateLimitReason(apiErr) {
			return store.KindTransient
		}
		return store.KindPermission
	case http.StatusNotFound, http.StatusGone:
		return store.KindNotFound
	case http.StatusTooManyRequests:
		return store.KindTransient
	}
	if apiErr.Code >= 500 {
		return store.KindTransient
	}
	return store.KindUnknown
}

func hasRateLimitReason(apiErr *gapi.Error) bool {
	for _, item := range apiErr.Errors {
		switch item.Reason {
		case "rateLimitExceeded", "userRateLimitExceeded", "quotaExceeded":
			return true
		}
	}
	return strings.Contains(strings.ToLower(apiErr.Message), "rate limit")
}
