package core

import (
	"encoding/json"
	"net/http"
)

// JSON writes v as a JSON response with the given status code. Encoding
// failures after the header is written cannot be reported to the client;
// they surface in the request log via the connection error.
func JSON(w http.ResponseWriter, _ *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
