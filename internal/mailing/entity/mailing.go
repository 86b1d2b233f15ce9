package entity

import (
	"time"

	"github.com/shandysiswandi/docmailer/internal/pkg/valueobject"
)

type Address struct {
	FullName string
	Address1 string
	Address2 string
	Address3 string
	Address4 string
	Address5 string
	// Extra carries any further Docmail address fields by their wire name.
	Extra map[string]any
}

type Template struct {
	FileName string
	Data     []byte
	// Extra carries further Docmail template fields by their wire name.
	Extra map[string]any
}

// Submission is everything needed to drive one Docmail send.
type Submission struct {
	MailingName string
	// Options override Docmail mailing fields by their wire name.
	Options   map[string]any
	Addresses []Address
	Template  Template
}

type SendResult struct {
	Accepted    bool
	State       string
	FailedStep  string
	MailingGUID string
	OrderRef    string
}

type PollResult struct {
	Status     string
	Diagnostic string
	Attempts   int
}

type NewMailing struct {
	ID           int64
	ClientID     string
	Name         string
	AddressCount int
	TemplateKey  string
	Options      valueobject.JSONMap
}

type SubmitOutcome struct {
	ID          int64
	Status      Status
	State       string
	FailedStep  string
	MailingGUID string
	OrderRef    string
	Error       string
}

type PollOutcome struct {
	ID           int64
	Status       Status
	RemoteStatus string
	Diagnostic   string
	ProofKey     string
}

type Mailing struct {
	ID           int64
	ClientID     string
	Name         string
	Status       Status
	State        string
	FailedStep   string
	MailingGUID  string
	OrderRef     string
	AddressCount int
	TemplateKey  string
	ProofKey     string
	RemoteStatus string
	Diagnostic   string
	Error        string
	Options      valueobject.JSONMap
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type MailingFilter struct {
	ClientID string
	Status   Status
	Limit    int32
	Offset   int32
}
