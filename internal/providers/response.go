package providers

import (
	json "github.com/goccy/go-json"
	"net/http"
)

type APIResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, resp APIResponse) {
	gson, err := json.Marshal(resp)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	WriteRawJSON(w, status, gson)
}

func WriteRawJSON(w http.ResponseWriter, status int, gson []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(gson)
}

func WriteSuccess(w http.ResponseWriter, status int, data any) {
	WriteJSON(w, status, APIResponse{Success: true, Data: data})
}

func WriteFailure(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, APIResponse{Success: false, Error: message})
}
