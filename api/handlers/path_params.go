package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/gofrs/uuid/v5"
)

func incidentIDParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.FromString(strings.TrimSpace(chi.URLParam(r, "id")))
	if err != nil {
		writeValidation(w, []ValidationDetail{{Location: []string{"path", "id"}, Message: "Input should be a valid UUID", Type: "uuid_parsing"}})
		return uuid.Nil, false
	}
	return id, true
}
