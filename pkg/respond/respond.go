package respond

import (
	"encoding/json"
	"net/http"
)

// ErrorBody is the error payload of the task tracker API.
type ErrorBody struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func JSON(w http.ResponseWriter, r *http.Request, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(data)
}

// Error writes {"error":{"code":...,"message":...}}.
func Error(w http.ResponseWriter, r *http.Request, code int, errCode, message string) {
	JSON(w, r, code, map[string]ErrorBody{"error": {Code: errCode, Message: message}})
}

// ValidationError writes a 422 carrying per-field messages.
func ValidationError(w http.ResponseWriter, r *http.Request, message string, fields map[string]string) {
	JSON(w, r, http.StatusUnprocessableEntity, map[string]ErrorBody{
		"error": {Code: "VALIDATION_ERROR", Message: message, Fields: fields},
	})
}
