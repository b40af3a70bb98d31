package httpx

import (
	"encoding/json"
	"net/http"
)

const statusSuccess = "success"

type envelope struct {
	Status  string         `json:"status"`
	Results *int           `json:"results,omitempty"`
	Token   string         `json:"token,omitempty"`
	Data    map[string]any `json:"data,omitempty"`
}

func WriteJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(body)
}

// WriteSuccess wraps a single document in the standard success envelope,
// keyed by its resource name.
func WriteSuccess(w http.ResponseWriter, resource string, doc any) {
	WriteJSON(w, http.StatusOK, envelope{
		Status: statusSuccess,
		Data:   map[string]any{resource: doc},
	})
}

func WriteCreated(w http.ResponseWriter, resource string, doc any) {
	WriteJSON(w, http.StatusCreated, envelope{
		Status: statusSuccess,
		Data:   map[string]any{resource: doc},
	})
}

// WriteList includes the count of returned items alongside the data.
func WriteList(w http.ResponseWriter, resource string, docs any, results int) {
	WriteJSON(w, http.StatusOK, envelope{
		Status:  statusSuccess,
		Results: &results,
		Data:    map[string]any{resource: docs},
	})
}

func WriteNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// WriteToken is used by the auth handlers, which return the session token at
// the top level of the envelope.
func WriteToken(w http.ResponseWriter, statusCode int, token string, data map[string]any) {
	WriteJSON(w, statusCode, envelope{
		Status: statusSuccess,
		Token:  token,
		Data:   data,
	})
}

// WriteMessage is for endpoints that acknowledge without returning a document.
func WriteMessage(w http.ResponseWriter, statusCode int, message string) {
	WriteJSON(w, statusCode, map[string]string{
		"status":  statusSuccess,
		"message": message,
	})
}
