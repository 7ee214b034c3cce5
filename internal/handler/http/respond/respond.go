// Package respond writes JSON response bodies for the HTTP handlers.
package respond

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
)

type errorBody struct {
	Detail string `json:"detail"`
}

func JSON(w http.ResponseWriter, logger *zap.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Failed to write JSON response", zap.Error(err))
	}
}

// Error writes {"detail": detail} with the given status.
func Error(w http.ResponseWriter, logger *zap.Logger, status int, detail string) {
	JSON(w, logger, status, errorBody{Detail: detail})
}
