package httputil

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 1 << 20

// WriteJSON writes v with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.WithError(err).Warn("failed to encode response")
	}
}

// WriteError renders err as {"error": message}. Errors that are not *Error are
// logged with the request path and surface as a generic 500.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	var appErr *Error
	if !errors.As(err, &appErr) {
		appErr = Internal(err)
	}
	if appErr.Status >= http.StatusInternalServerError {
		entry := logrus.WithField("status", appErr.Status)
		if r != nil {
			entry = entry.WithFields(logrus.Fields{
				"method": r.Method,
				"path":   r.URL.Path,
			})
		}
		entry.WithError(err).Error("request failed")
	}
	WriteJSON(w, appErr.Status, map[string]string{"error": appErr.Message})
}

// DecodeJSON reads a JSON body into dst. Any decode failure is a 400.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return BadRequest("요청 본문이 비어 있습니다")
		}
		return BadRequest("잘못된 요청 형식입니다")
	}
	return nil
}

// Success is the common acknowledgement body for mutations.
func Success(w http.ResponseWriter, message string) {
	body := map[string]any{"success": true}
	if message = strings.TrimSpace(message); message != "" {
		body["message"] = message
	}
	WriteJSON(w, http.StatusOK, body)
}
