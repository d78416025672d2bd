package apiclient

import "fmt"

// APIError is a non-2xx response from the live service. The Detail field
// carries the server's {"detail": ...} message when present, for display by
// the calling UI layer.
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("api error: status %d", e.StatusCode)
	}
	return fmt.Sprintf("api error: status %d: %s", e.StatusCode, e.Detail)
}
