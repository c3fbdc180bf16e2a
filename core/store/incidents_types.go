package store

import (
	"time"

	"github.com/gofrs/uuid/v5"
)

type IncidentState string

const (
	StateOpen       IncidentState = "open"
	StateInProgress IncidentState = "in_progress"
	StateClosed     IncidentState = "closed"
	StateEscalated  IncidentState = "escalated"
)

var IncidentStates = []IncidentState{StateOpen, StateInProgress, StateClosed, StateEscalated}

type IncidentChannel string

const (
	ChannelPhone  IncidentChannel = "phone"
	ChannelEmail  IncidentChannel = "email"
	ChannelChat   IncidentChannel = "chat"
	ChannelMobile IncidentChannel = "mobile"
)

var IncidentChannels = []IncidentChannel{ChannelPhone, ChannelEmail, ChannelChat, ChannelMobile}

type IncidentPriority string

const (
	PriorityLow    IncidentPriority = "low"
	PriorityMedium IncidentPriority = "medium"
	PriorityHigh   IncidentPriority = "high"
)

var IncidentPriorities = []IncidentPriority{PriorityLow, PriorityMedium, PriorityHigh}

type Incident struct {
	ID           uuid.UUID        `json:"id"`
	Description  string           `json:"description"`
	State        IncidentState    `json:"state"`
	Channel      IncidentChannel  `json:"channel"`
	Priority     IncidentPriority `json:"priority"`
	CreationDate time.Time        `json:"creation_date"`
	UserID       uuid.UUID        `json:"user_id"`
	CompanyID    uuid.UUID        `json:"company_id"`
	ManagerID    *uuid.UUID       `json:"manager_id,omitempty"`
	FileData     []byte           `json:"-"`
	FileName     string           `json:"file_name,omitempty"`
}

// IncidentHistory is an append-only audit note written with its incident.
type IncidentHistory struct {
	ID          uuid.UUID `json:"id"`
	IncidentID  uuid.UUID `json:"incident_id"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}
