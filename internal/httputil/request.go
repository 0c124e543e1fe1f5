package httputil

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// maxBodyBytes caps request bodies at 10MB, matching the largest accepted
// file content write.
const maxBodyBytes = 10 << 20

// ParseJSON decodes JSON from the request body into the given destination.
// The body size is limited to prevent abuse; exceeding it yields a 413 from
// MaxBytesReader.
func ParseJSON(w http.ResponseWriter, r *http.Request, dest interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}

	return nil
}

// ReadBody reads the full request body subject to the same size cap.
// Used by the raw content write endpoint.
func ReadBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	data, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, fmt.Errorf("read request body: %w", err)
	}
	return data, nil
}
