package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/SoloAWS/incident-command-service/core/apperr"
	"github.com/SoloAWS/incident-command-service/core/utils"
)

const APIVersion = "1.0"

type errorBody struct {
	Code    string `json:"code"`
	Detail  string `json:"detail"`
	Version string `json:"version"`
}

// ValidationDetail describes one rejected request field.
type ValidationDetail struct {
	Location []string `json:"location"`
	Message  string   `json:"message"`
	Type     string   `json:"type"`
}

type validationBody struct {
	Message string             `json:"message"`
	Details []ValidationDetail `json:"details"`
	Version string             `json:"version"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func WriteErrorBody(w http.ResponseWriter, status int, code, detail string) {
	writeJSON(w, status, errorBody{Code: code, Detail: detail, Version: APIVersion})
}

// WriteError renders err for the client. Anything outside the apperr taxonomy is
// logged and answered as an internal error.
func WriteError(w http.ResponseWriter, logger *utils.Logger, err error) {
	ae := apperr.From(err)
	if ae == nil {
		logger.Errorf("unhandled error: %v", err)
		ae = apperr.Internal(err)
	} else if ae.Kind == apperr.KindInternal && ae.Unwrap() != nil {
		logger.Errorf("internal error: %v", ae.Unwrap())
	}
	WriteErrorBody(w, ae.Kind.Status(), ae.Kind.Code(), ae.Error())
}

func writeValidation(w http.ResponseWriter, details []ValidationDetail) {
	writeJSON(w, http.StatusBadRequest, validationBody{
		Message: "Validation Error",
		Details: details,
		Version: APIVersion,
	})
}
