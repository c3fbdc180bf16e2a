package incidents

import (
	"context"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/SoloAWS/incident-command-service/core/apperr"
	"github.com/SoloAWS/incident-command-service/core/auth"
	"github.com/SoloAWS/incident-command-service/core/directory"
	"github.com/SoloAWS/incident-command-service/core/rbac"
	"github.com/SoloAWS/incident-command-service/core/store"
	"github.com/SoloAWS/incident-command-service/core/utils"
)

const (
	noteCreatedByAdvisor = "created by advisor"
	noteCreatedByUser    = "created by user"
	noteCreatedViaEmail  = "created via email"

	listLimit = 20
)

// Directory is the subset of the user directory the email flow needs.
type Directory interface {
	CompanyByName(ctx context.Context, name string) (*directory.Company, error)
	CompaniesByEmail(ctx context.Context, email string) ([]directory.Company, error)
	ValidateUser(ctx context.Context, email string, companyID uuid.UUID) (*directory.UserValidation, error)
}

type Service struct {
	store     store.IncidentsStore
	directory Directory
	policy    *rbac.Policy
	logger    *utils.Logger
	now       func() time.Time
}

func NewService(st store.IncidentsStore, dir Directory, policy *rbac.Policy, logger *utils.Logger) *Service {
	return &Service{
		store:     st,
		directory: dir,
		policy:    policy,
		logger:    logger,
		now:       utils.NowUTC,
	}
}

type CreateRequest struct {
	UserID      uuid.UUID
	CompanyID   uuid.UUID
	Description string
	State       store.IncidentState
	Channel     store.IncidentChannel
	Priority    store.IncidentPriority
}

// AttachmentFields carries the multipart form values before enum parsing.
type AttachmentFields struct {
	UserID      uuid.UUID
	CompanyID   uuid.UUID
	Description string
	State       string
	Channel     string
	Priority    string
}

type Attachment struct {
	Name string
	Data []byte
}

type ListRequest struct {
	UserID    uuid.UUID
	CompanyID uuid.UUID
}

func (s *Service) CreateDirect(ctx context.Context, req CreateRequest, caller *auth.Identity) (*store.Incident, error) {
	if err := s.policy.CanCreateIncident(caller); err != nil {
		return nil, err
	}
	state, err := parseOptional(string(req.State), store.StateOpen, ParseState)
	if err != nil {
		return nil, err
	}
	channel, err := ParseChannel(string(req.Channel))
	if err != nil {
		return nil, err
	}
	priority, err := ParsePriority(string(req.Priority))
	if err != nil {
		return nil, err
	}
	inc := &store.Incident{
		Description: req.Description,
		State:       state,
		Channel:     channel,
		Priority:    priority,
		UserID:      req.UserID,
		CompanyID:   req.CompanyID,
		ManagerID:   managerOf(caller),
	}
	return s.create(ctx, inc, noteCreatedByAdvisor)
}

func (s *Service) CreateWithAttachment(ctx context.Context, fields AttachmentFields, file *Attachment, caller *auth.Identity) (*store.Incident, error) {
	if err := s.policy.CanCreateIncident(caller); err != nil {
		return nil, err
	}
	state, err := parseOptional(fields.State, store.StateOpen, ParseState)
	if err != nil {
		return nil, err
	}
	channel, err := parseOptional(fields.Channel, store.ChannelMobile, ParseChannel)
	if err != nil {
		return nil, err
	}
	priority, err := parseOptional(fields.Priority, store.PriorityMedium, ParsePriority)
	if err != nil {
		return nil, err
	}
	inc := &store.Incident{
		Description: fields.Description,
		State:       state,
		Channel:     channel,
		Priority:    priority,
		UserID:      fields.UserID,
		CompanyID:   fields.CompanyID,
		ManagerID:   managerOf(caller),
	}
	if file != nil && (len(file.Data) > 0 || file.Name != "") {
		inc.FileData = file.Data
		inc.FileName = file.Name
	}
	return s.create(ctx, inc, noteCreatedByUser)
}

// ListForUserCompany returns at most 20 incidents, newest first.
func (s *Service) ListForUserCompany(ctx context.Context, req ListRequest, caller *auth.Identity) ([]store.Incident, error) {
	if err := s.policy.CanListIncidents(caller, req.UserID); err != nil {
		return nil, err
	}
	items, err := s.store.ListIncidentsByUserCompany(ctx, req.UserID, req.CompanyID, listLimit)
	if err != nil {
		s.logger.Errorf("list incidents user=%s company=%s: %v", req.UserID, req.CompanyID, err)
		return nil, apperr.Internal(err)
	}
	return items, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID, caller *auth.Identity) (*store.Incident, error) {
	if caller == nil {
		return nil, apperr.Unauthorized("Authentication required")
	}
	inc, err := s.store.GetIncident(ctx, id)
	if err != nil {
		s.logger.Errorf("get incident %s: %v", id, err)
		return nil, apperr.Internal(err)
	}
	if inc == nil {
		return nil, apperr.New(apperr.KindNotFound, "Incident not found")
	}
	if err := s.policy.CanViewIncident(caller, inc.UserID); err != nil {
		return nil, err
	}
	return inc, nil
}

func (s *Service) History(ctx context.Context, id uuid.UUID, caller *auth.Identity) ([]store.IncidentHistory, error) {
	if _, err := s.Get(ctx, id, caller); err != nil {
		return nil, err
	}
	items, err := s.store.ListIncidentHistory(ctx, id)
	if err != nil {
		s.logger.Errorf("incident history %s: %v", id, err)
		return nil, apperr.Internal(err)
	}
	return items, nil
}

func (s *Service) Attachment(ctx context.Context, id uuid.UUID, caller *auth.Identity) (*Attachment, error) {
	inc, err := s.Get(ctx, id, caller)
	if err != nil {
		return nil, err
	}
	if len(inc.FileData) == 0 && inc.FileName == "" {
		return nil, apperr.New(apperr.KindNotFound, "Incident has no attachment")
	}
	return &Attachment{Name: inc.FileName, Data: inc.FileData}, nil
}

func (s *Service) create(ctx context.Context, inc *store.Incident, note string) (*store.Incident, error) {
	inc.CreationDate = s.now()
	if err := s.store.CreateIncident(ctx, inc, note); err != nil {
		s.logger.Errorf("create incident user=%s company=%s: %v", inc.UserID, inc.CompanyID, err)
		return nil, apperr.Internal(err)
	}
	s.logger.Printf("incident %s created (%s, channel=%s)", inc.ID, note, inc.Channel)
	return inc, nil
}

func managerOf(caller *auth.Identity) *uuid.UUID {
	if !caller.IsManager() {
		return nil
	}
	id := caller.Subject
	return &id
}
