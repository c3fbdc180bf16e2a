package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/mail"
	"strings"

	"github.com/gofrs/uuid/v5"

	"github.com/SoloAWS/incident-command-service/core/incidents"
	"github.com/SoloAWS/incident-command-service/core/store"
)

const jsonPayloadMaxBytes = 1 << 20

var errPayloadTooLarge = errors.New("payload too large")

type formErrors []ValidationDetail

func (f *formErrors) add(location, field, msg, kind string) {
	*f = append(*f, ValidationDetail{Location: []string{location, field}, Message: msg, Type: kind})
}

func (f *formErrors) requireText(location, field, value string) string {
	v := strings.TrimSpace(value)
	if v == "" {
		f.add(location, field, "Field required", "missing")
	}
	return v
}

func (f *formErrors) requireUUID(location, field, value string) uuid.UUID {
	v := strings.TrimSpace(value)
	if v == "" {
		f.add(location, field, "Field required", "missing")
		return uuid.Nil
	}
	id, err := uuid.FromString(v)
	if err != nil {
		f.add(location, field, "Input should be a valid UUID", "uuid_parsing")
		return uuid.Nil
	}
	return id
}

// decodeJSON fills dst from a bounded request body; a malformed body yields a single body-level detail.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) ([]ValidationDetail, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, jsonPayloadMaxBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, errPayloadTooLarge
		}
		return nil, err
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return []ValidationDetail{{Location: []string{"body"}, Message: "Invalid JSON body", Type: "json_invalid"}}, nil
	}
	return nil, nil
}

type createIncidentPayload struct {
	UserID      string `json:"user_id"`
	CompanyID   string `json:"company_id"`
	Description string `json:"description"`
	State       string `json:"state"`
	Channel     string `json:"channel"`
	Priority    string `json:"priority"`
}

func (p createIncidentPayload) validate() (incidents.CreateRequest, formErrors) {
	var errs formErrors
	req := incidents.CreateRequest{
		UserID:      errs.requireUUID("body", "user_id", p.UserID),
		CompanyID:   errs.requireUUID("body", "company_id", p.CompanyID),
		Description: errs.requireText("body", "description", p.Description),
	}
	if strings.TrimSpace(p.State) != "" {
		state, err := incidents.ParseState(p.State)
		if err != nil {
			errs.add("body", "state", enumMessage(store.IncidentStates), "enum")
		}
		req.State = state
	}
	if strings.TrimSpace(p.Channel) == "" {
		errs.add("body", "channel", "Field required", "missing")
	} else if channel, err := incidents.ParseChannel(p.Channel); err != nil {
		errs.add("body", "channel", enumMessage(store.IncidentChannels), "enum")
	} else {
		req.Channel = channel
	}
	if strings.TrimSpace(p.Priority) == "" {
		errs.add("body", "priority", "Field required", "missing")
	} else if priority, err := incidents.ParsePriority(p.Priority); err != nil {
		errs.add("body", "priority", enumMessage(store.IncidentPriorities), "enum")
	} else {
		req.Priority = priority
	}
	return req, errs
}

type userCompanyPayload struct {
	UserID    string `json:"user_id"`
	CompanyID string `json:"company_id"`
}

func (p userCompanyPayload) validate() (incidents.ListRequest, formErrors) {
	var errs formErrors
	req := incidents.ListRequest{
		UserID:    errs.requireUUID("body", "user_id", p.UserID),
		CompanyID: errs.requireUUID("body", "company_id", p.CompanyID),
	}
	return req, errs
}

type emailIncidentPayload struct {
	Email       string `json:"email"`
	CompanyName string `json:"company_name"`
	Description string `json:"description"`
}

func (p emailIncidentPayload) validate() (incidents.EmailRequest, formErrors) {
	var errs formErrors
	req := incidents.EmailRequest{
		Email:       errs.requireText("body", "email", p.Email),
		CompanyName: errs.requireText("body", "company_name", p.CompanyName),
		Description: errs.requireText("body", "description", p.Description),
	}
	if req.Email != "" {
		if addr, err := mail.ParseAddress(req.Email); err != nil || addr.Address != req.Email {
			errs.add("body", "email", "value is not a valid email address", "value_error")
		}
	}
	return req, errs
}

// attachmentForm reads the multipart fields; enum strings are left raw for the service to map.
func attachmentForm(r *http.Request) (incidents.AttachmentFields, formErrors) {
	var errs formErrors
	fields := incidents.AttachmentFields{
		UserID:      errs.requireUUID("form", "user_id", r.FormValue("user_id")),
		CompanyID:   errs.requireUUID("form", "company_id", r.FormValue("company_id")),
		Description: errs.requireText("form", "description", r.FormValue("description")),
		State:       r.FormValue("state"),
		Channel:     r.FormValue("channel"),
		Priority:    r.FormValue("priority"),
	}
	return fields, errs
}

func enumMessage[T ~string](values []T) string {
	quoted := make([]string, 0, len(values))
	for _, v := range values {
		quoted = append(quoted, "'"+string(v)+"'")
	}
	if len(quoted) == 1 {
		return "Input should be " + quoted[0]
	}
	return "Input should be " + strings.Join(quoted[:len(quoted)-1], ", ") + " or " + quoted[len(quoted)-1]
}
