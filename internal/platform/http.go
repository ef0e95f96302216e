package platform

import (
	"net/http"
	"time"
)

const requestTimeout = 90 * time.Second

// baseHTTPClient is the transport wrapped by the oauth2 client. Redirects are
// returned to the caller as is.
func baseHTTPClient() *http.Client {
	return &http.Client{
		Transport: http.DefaultTransport.(*http.Transport).Clone(),
		Timeout:   requestTimeout,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}
