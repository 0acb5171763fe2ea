package httpclient

import (
	"fmt"
	"io"
	"net/http"
)

// StatusError reports a non-2xx response.
type StatusError struct {
	StatusCode int
	URL        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s returned status %d", e.URL, e.StatusCode)
}

// Temporary reports whether retrying later may succeed.
func (e *StatusError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// CheckStatus returns a *StatusError for non-2xx responses after draining and
// closing the body. 2xx responses are left untouched.
func CheckStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	_ = resp.Body.Close()
	serr := &StatusError{StatusCode: resp.StatusCode}
	if resp.Request != nil {
		serr.URL = resp.Request.URL.String()
	}
	return serr
}

func IsClientError(status int) bool {
	return status >= 400 && status < 500
}
