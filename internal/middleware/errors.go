package middleware

import (
	"encoding/json"
	"net/http"
)

// writeError writes the same error envelope the handlers use, so clients
// see one shape whether a request is refused here or further in.
func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	body := map[string]string{"code": code, "message": message}
	if rid := RequestIDFromContext(r.Context()); rid != "" {
		body["request_id"] = rid
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"error": body})
}
