package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/baechuer/real-time-ressys/services/discovery-service/internal/domain"
	"github.com/baechuer/real-time-ressys/services/discovery-service/internal/logger"
	"github.com/baechuer/real-time-ressys/services/discovery-service/middleware"
)

func sendError(w http.ResponseWriter, r *http.Request, code string, message string, status int) {
	resp := domain.APIError{}
	resp.Error.Code = code
	resp.Error.Message = message
	resp.Error.RequestID = middleware.GetRequestID(r.Context())

	writeJSON(w, r, status, resp)
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Ctx(r.Context()).Warn().Err(err).Msg("failed to write response")
	}
}
