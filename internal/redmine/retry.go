package redmine

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/hashicorp/go-retryablehttp"
)

// retryStatuses are the responses worth another attempt.
var retryStatuses = map[int]bool{
	http.StatusTooManyRequests:     true,
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

// idempotentMethods may be replayed after a retryable status. POST is not,
// since the server may already have created the resource.
var idempotentMethods = map[string]bool{
	http.MethodGet:     true,
	http.MethodHead:    true,
	http.MethodPut:     true,
	http.MethodDelete:  true,
	http.MethodOptions: true,
	http.MethodTrace:   true,
}

type methodKey struct{}

// withMethod records the request method on ctx so checkRetry can see it when
// the attempt failed without a response.
func withMethod(ctx context.Context, method string) context.Context {
	return context.WithValue(ctx, methodKey{}, method)
}

func methodFrom(ctx context.Context, resp *http.Response) string {
	if resp != nil && resp.Request != nil {
		return resp.Request.Method
	}
	method, _ := ctx.Value(methodKey{}).(string)
	return method
}

func cleanTransport() http.RoundTripper {
	return cleanhttp.DefaultPooledTransport()
}

func newRetryClient(cfg Config, timeout time.Duration, transport http.RoundTripper, logger *slog.Logger) *retryablehttp.Client {
	rc := retryablehttp.NewClient()
	rc.HTTPClient = &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
	rc.RetryMax = cfg.RetryMax
	rc.RetryWaitMin = cfg.RetryWaitMin
	rc.RetryWaitMax = cfg.RetryWaitMax
	rc.Backoff = cappedBackoff
	rc.CheckRetry = checkRetry
	// Hand the last response back once retries run out so the caller maps
	// its status like any other failure.
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler
	rc.Logger = logger
	return rc
}

func checkRetry(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	idempotent := idempotentMethods[methodFrom(ctx, resp)]
	if err != nil {
		// A non-idempotent request may have reached the server before the
		// error; only a failed dial guarantees it did not.
		if !idempotent && !isDialError(err) {
			return false, nil
		}
		return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
	}
	if resp == nil || !idempotent {
		return false, nil
	}
	return retryStatuses[resp.StatusCode], nil
}

func isDialError(err error) bool {
	var opErr *net.OpError
	return errors.As(err, &opErr) && opErr.Op == "dial"
}

// cappedBackoff honours Retry-After like retryablehttp.DefaultBackoff but
// never waits longer than waitMax.
func cappedBackoff(waitMin, waitMax time.Duration, attemptNum int, resp *http.Response) time.Duration {
	return min(retryablehttp.DefaultBackoff(waitMin, waitMax, attemptNum, resp), waitMax)
}
