package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/SoloAWS/incident-command-service/config"
	"github.com/SoloAWS/incident-command-service/core/auth"
	"github.com/SoloAWS/incident-command-service/core/incidents"
	"github.com/SoloAWS/incident-command-service/core/store"
	"github.com/SoloAWS/incident-command-service/core/utils"
)

type IncidentsHandler struct {
	cfg    *config.AppConfig
	svc    *incidents.Service
	logger *utils.Logger
}

func NewIncidentsHandler(cfg *config.AppConfig, svc *incidents.Service, logger *utils.Logger) *IncidentsHandler {
	return &IncidentsHandler{cfg: cfg, svc: svc, logger: logger}
}

type incidentSummaryDTO struct {
	ID           uuid.UUID           `json:"id"`
	Description  string              `json:"description"`
	State        store.IncidentState `json:"state"`
	CreationDate time.Time           `json:"creation_date"`
}

func (h *IncidentsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var payload createIncidentPayload
	if h.decode(w, r, &payload) {
		return
	}
	req, errs := payload.validate()
	if len(errs) > 0 {
		writeValidation(w, errs)
		return
	}
	created, err := h.svc.CreateDirect(r.Context(), req, auth.IdentityFromContext(r.Context()))
	if err != nil {
		WriteError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *IncidentsHandler) CreateWithAttachment(w http.ResponseWriter, r *http.Request) {
	if err := parseMultipartFormLimited(w, r, h.cfg.EffectiveUploadLimit()); err != nil {
		if errors.Is(err, errPayloadTooLarge) {
			WriteErrorBody(w, http.StatusRequestEntityTooLarge, "payload_too_large", "Uploaded file is too large")
			return
		}
		writeValidation(w, []ValidationDetail{{Location: []string{"form"}, Message: "Invalid multipart form", Type: "form_invalid"}})
		return
	}
	fields, errs := attachmentForm(r)
	if len(errs) > 0 {
		writeValidation(w, errs)
		return
	}
	var attachment *incidents.Attachment
	file, header, err := r.FormFile("file")
	switch {
	case err == nil:
		defer file.Close()
		data, err := io.ReadAll(file)
		if err != nil {
			WriteError(w, h.logger, err)
			return
		}
		attachment = &incidents.Attachment{Name: header.Filename, Data: data}
	case errors.Is(err, http.ErrMissingFile):
	default:
		writeValidation(w, []ValidationDetail{{Location: []string{"form", "file"}, Message: "Invalid file upload", Type: "form_invalid"}})
		return
	}
	created, err := h.svc.CreateWithAttachment(r.Context(), fields, attachment, auth.IdentityFromContext(r.Context()))
	if err != nil {
		WriteError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *IncidentsHandler) ListUserCompany(w http.ResponseWriter, r *http.Request) {
	var payload userCompanyPayload
	if h.decode(w, r, &payload) {
		return
	}
	req, errs := payload.validate()
	if len(errs) > 0 {
		writeValidation(w, errs)
		return
	}
	items, err := h.svc.ListForUserCompany(r.Context(), req, auth.IdentityFromContext(r.Context()))
	if err != nil {
		WriteError(w, h.logger, err)
		return
	}
	res := make([]incidentSummaryDTO, 0, len(items))
	for _, it := range items {
		res = append(res, incidentSummaryDTO{ID: it.ID, Description: it.Description, State: it.State, CreationDate: it.CreationDate})
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *IncidentsHandler) CreateFromEmail(w http.ResponseWriter, r *http.Request) {
	var payload emailIncidentPayload
	if h.decode(w, r, &payload) {
		return
	}
	req, errs := payload.validate()
	if len(errs) > 0 {
		writeValidation(w, errs)
		return
	}
	created, err := h.svc.CreateFromEmail(r.Context(), req)
	if err != nil {
		WriteError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *IncidentsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := incidentIDParam(w, r)
	if !ok {
		return
	}
	inc, err := h.svc.Get(r.Context(), id, auth.IdentityFromContext(r.Context()))
	if err != nil {
		WriteError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, inc)
}

func (h *IncidentsHandler) History(w http.ResponseWriter, r *http.Request) {
	id, ok := incidentIDParam(w, r)
	if !ok {
		return
	}
	items, err := h.svc.History(r.Context(), id, auth.IdentityFromContext(r.Context()))
	if err != nil {
		WriteError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *IncidentsHandler) DownloadFile(w http.ResponseWriter, r *http.Request) {
	id, ok := incidentIDParam(w, r)
	if !ok {
		return
	}
	file, err := h.svc.Attachment(r.Context(), id, auth.IdentityFromContext(r.Context()))
	if err != nil {
		WriteError(w, h.logger, err)
		return
	}
	name := safeFileName(file.Name)
	if name == "" {
		name = id.String()
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(file.Data)
}

// decode reports whether the response has already been written.
func (h *IncidentsHandler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	details, err := decodeJSON(w, r, dst)
	switch {
	case errors.Is(err, errPayloadTooLarge):
		WriteErrorBody(w, http.StatusRequestEntityTooLarge, "payload_too_large", "Request body is too large")
		return true
	case err != nil:
		WriteError(w, h.logger, err)
		return true
	case len(details) > 0:
		writeValidation(w, details)
		return true
	}
	return false
}

func parseMultipartFormLimited(w http.ResponseWriter, r *http.Request, limit int64) error {
	// room for the non-file fields and multipart framing
	maxBytes := limit + jsonPayloadMaxBytes
	if r.ContentLength > maxBytes {
		return errPayloadTooLarge
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	if err := r.ParseMultipartForm(limit); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return errPayloadTooLarge
		}
		return err
	}
	return nil
}

func safeFileName(name string) string {
	replacer := strings.NewReplacer("/", "_", "\\", "_", "\"", "_", "\r", "", "\n", "")
	return strings.TrimSpace(replacer.Replace(name))
}
