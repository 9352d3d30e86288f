package api

import (
	"math"
	"net/http"
	"strconv"

	"golang.org/x/time/rate"

	"github.com/okian/betti/pkg/metrics"
)

// RateLimitMiddleware rejects requests with 429 once limiter runs dry. A nil
// limiter passes everything through.
func RateLimitMiddleware(limiter *rate.Limiter, next http.HandlerFunc) http.HandlerFunc {
	if limiter == nil {
		return next
	}
	return func(w http.ResponseWriter, r *http.Request) {
		res := limiter.Reserve()
		if !res.OK() {
			rejectRateLimited(w, 1)
			return
		}
		if delay := res.Delay(); delay > 0 {
			res.Cancel()
			rejectRateLimited(w, int(math.Ceil(delay.Seconds())))
			return
		}
		next(w, r)
	}
}

func rejectRateLimited(w http.ResponseWriter, retryAfter int) {
	if retryAfter < 1 {
		retryAfter = 1
	}
	metrics.RecordRateLimited()
	w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	writeError(w, http.StatusTooManyRequests, "rate_limited", NewKind("admission", ErrRateLimited))
}
