package http

import (
	"encoding/json"
	"net/http"

	"github.com/fixora/spaceships/pkg/apperror"
)

// Response is the JSON envelope of every API reply
type Response struct {
	Status  bool        `json:"status"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
	Code    string      `json:"code,omitempty"`
}

func writeSuccessResponse(w http.ResponseWriter, statusCode int, message string, data interface{}) {
	writeJSON(w, statusCode, Response{
		Status:  true,
		Message: message,
		Data:    data,
	})
}

func writeErrorResponse(w http.ResponseWriter, appErr *apperror.AppError) {
	var data interface{}
	if len(appErr.Fields) > 0 {
		data = appErr.Fields
	}

	writeJSON(w, appErr.Status, Response{
		Status:  false,
		Message: appErr.Message,
		Data:    data,
		Code:    appErr.Code,
	})
}

func writeJSON(w http.ResponseWriter, statusCode int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(body)
}
