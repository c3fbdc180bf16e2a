package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/m-mizutani/goerr/v2"
)

const MaxIncidentsPerList = 20

type IncidentsStore interface {
	CreateIncident(ctx context.Context, incident *Incident, historyNote string) error
	GetIncident(ctx context.Context, id uuid.UUID) (*Incident, error)
	ListIncidentsByUserCompany(ctx context.Context, userID, companyID uuid.UUID, limit int) ([]Incident, error)
	ListIncidentHistory(ctx context.Context, incidentID uuid.UUID) ([]IncidentHistory, error)
}

type incidentsStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewIncidentsStore(db *sql.DB) IncidentsStore {
	return &incidentsStore{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// CreateIncident writes the incident and its history note in one transaction.
func (s *incidentsStore) CreateIncident(ctx context.Context, incident *Incident, historyNote string) error {
	if incident.ID.IsNil() {
		id, err := uuid.NewV4()
		if err != nil {
			return goerr.Wrap(err, "failed to generate incident id")
		}
		incident.ID = id
	}
	if incident.CreationDate.IsZero() {
		incident.CreationDate = s.now()
	}
	incident.CreationDate = incident.CreationDate.UTC()
	if strings.TrimSpace(string(incident.State)) == "" {
		incident.State = StateOpen
	}
	historyID, err := uuid.NewV4()
	if err != nil {
		return goerr.Wrap(err, "failed to generate history id")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return goerr.Wrap(err, "failed to begin transaction")
	}
	var fileName any
	if incident.FileName != "" {
		fileName = incident.FileName
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO incident(id, description, state, channel, priority, creation_date, user_id, company_id, manager_id, file_data, file_name)
		VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		incident.ID, incident.Description, string(incident.State), string(incident.Channel), string(incident.Priority),
		incident.CreationDate, incident.UserID, incident.CompanyID, nullableUUID(incident.ManagerID), incident.FileData, fileName); err != nil {
		tx.Rollback()
		return goerr.Wrap(err, "failed to insert incident", goerr.V("incident_id", incident.ID))
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO incident_history(id, incident_id, description, created_at)
		VALUES($1,$2,$3,$4)`,
		historyID, incident.ID, historyNote, incident.CreationDate); err != nil {
		tx.Rollback()
		return goerr.Wrap(err, "failed to insert incident history", goerr.V("incident_id", incident.ID))
	}
	if err := tx.Commit(); err != nil {
		return goerr.Wrap(err, "failed to commit incident", goerr.V("incident_id", incident.ID))
	}
	return nil
}

func (s *incidentsStore) GetIncident(ctx context.Context, id uuid.UUID) (*Incident, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, description, state, channel, priority, creation_date, user_id, company_id, manager_id, file_data, file_name
		FROM incident WHERE id=$1`, id)
	inc, err := scanIncident(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, goerr.Wrap(err, "failed to get incident", goerr.V("incident_id", id))
	}
	return &inc, nil
}

// ListIncidentsByUserCompany returns the newest incidents first; limit is capped at MaxIncidentsPerList.
func (s *incidentsStore) ListIncidentsByUserCompany(ctx context.Context, userID, companyID uuid.UUID, limit int) ([]Incident, error) {
	if limit <= 0 || limit > MaxIncidentsPerList {
		limit = MaxIncidentsPerList
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, description, state, channel, priority, creation_date, user_id, company_id, manager_id, file_data, file_name
		FROM incident
		WHERE user_id=$1 AND company_id=$2
		ORDER BY creation_date DESC
		LIMIT $3`, userID, companyID, limit)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list incidents", goerr.V("user_id", userID), goerr.V("company_id", companyID))
	}
	defer rows.Close()
	res := []Incident{}
	for rows.Next() {
		inc, err := scanIncident(rows)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to scan incident")
		}
		res = append(res, inc)
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to iterate incidents")
	}
	return res, nil
}

func (s *incidentsStore) ListIncidentHistory(ctx context.Context, incidentID uuid.UUID) ([]IncidentHistory, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, incident_id, description, created_at
		FROM incident_history WHERE incident_id=$1
		ORDER BY created_at ASC`, incidentID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list incident history", goerr.V("incident_id", incidentID))
	}
	defer rows.Close()
	res := []IncidentHistory{}
	for rows.Next() {
		var h IncidentHistory
		if err := rows.Scan(&h.ID, &h.IncidentID, &h.Description, &h.CreatedAt); err != nil {
			return nil, goerr.Wrap(err, "failed to scan incident history")
		}
		h.CreatedAt = h.CreatedAt.UTC()
		res = append(res, h)
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to iterate incident history")
	}
	return res, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanIncident(row rowScanner) (Incident, error) {
	var inc Incident
	var state, channel, priority string
	var manager uuid.NullUUID
	var fileName sql.NullString
	if err := row.Scan(&inc.ID, &inc.Description, &state, &channel, &priority, &inc.CreationDate, &inc.UserID, &inc.CompanyID, &manager, &inc.FileData, &fileName); err != nil {
		return inc, err
	}
	inc.State = IncidentState(state)
	inc.Channel = IncidentChannel(channel)
	inc.Priority = IncidentPriority(priority)
	inc.CreationDate = inc.CreationDate.UTC()
	if manager.Valid {
		id := manager.UUID
		inc.ManagerID = &id
	}
	if fileName.Valid {
		inc.FileName = fileName.String
	}
	return inc, nil
}

func nullableUUID(id *uuid.UUID) any {
	if id == nil || id.IsNil() {
		return nil
	}
	return *id
}
