package utils

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
)

type Response struct {
	Message       string   `json:"message"`
	Code          string   `json:"code,omitempty"`
	MissingFields []string `json:"missingFields,omitempty"`
}

func RespondWithJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Error("failed to write response", zap.Error(err))
	}
}

func RespondWithError(w http.ResponseWriter, status int, code, message string) {
	RespondWithJSON(w, status, Response{Message: message, Code: code})
}

func RespondWithMissingFields(w http.ResponseWriter, fields []string) {
	RespondWithJSON(w, http.StatusBadRequest, Response{
		Message:       "Missing required fields",
		Code:          "MISSING_FIELDS",
		MissingFields: fields,
	})
}
