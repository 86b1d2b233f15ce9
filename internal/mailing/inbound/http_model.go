package inbound

import (
	"net/http"
	"time"

	"github.com/shandysiswandi/docmailer/internal/pkg/valueobject"
)

type AddressRequest struct {
	FullName string         `json:"full_name"`
	Address1 string         `json:"address1"`
	Address2 string         `json:"address2"`
	Address3 string         `json:"address3,omitempty"`
	Address4 string         `json:"address4,omitempty"`
	Address5 string         `json:"address5,omitempty"`
	Extra    map[string]any `json:"extra,omitempty" swaggertype:"object"`
}

type TemplateRequest struct {
	FileName    string         `json:"file_name"`
	Data        []byte         `json:"data,omitempty" swaggertype:"string" format:"base64"`
	TemplateKey string         `json:"template_key,omitempty"`
	Extra       map[string]any `json:"extra,omitempty" swaggertype:"object"`
}

type SubmitMailingRequest struct {
	Name        string           `json:"name"`
	NotifyEmail string           `json:"notify_email,omitempty"`
	Options     map[string]any   `json:"options,omitempty" swaggertype:"object"`
	Addresses   []AddressRequest `json:"addresses"`
	Template    TemplateRequest  `json:"template"`
}

type SubmitMailingResponse struct {
	ID          int64  `json:"id"`
	Status      string `json:"status"`
	MailingGUID string `json:"mailing_guid"`
	OrderRef    string `json:"order_ref"`
}

func (SubmitMailingResponse) StatusCode() int { return http.StatusCreated }

func (SubmitMailingResponse) Message() string {
	return "Mailing submitted to Docmail"
}

type MailingResponse struct {
	ID           int64               `json:"id"`
	ClientID     string              `json:"client_id"`
	Name         string              `json:"name"`
	Status       string              `json:"status"`
	State        string              `json:"state"`
	FailedStep   string              `json:"failed_step,omitempty"`
	MailingGUID  string              `json:"mailing_guid,omitempty"`
	OrderRef     string              `json:"order_ref,omitempty"`
	AddressCount int                 `json:"address_count"`
	RemoteStatus string              `json:"remote_status,omitempty"`
	Diagnostic   string              `json:"diagnostic,omitempty"`
	Error        string              `json:"error,omitempty"`
	HasProof     bool                `json:"has_proof"`
	Options      valueobject.JSONMap `json:"options" swaggertype:"object"`
	CreatedAt    time.Time           `json:"created_at"`
	UpdatedAt    time.Time           `json:"updated_at"`
}

type MailingDetailResponse struct {
	Mailing MailingResponse `json:"mailing"`
}

type MailingsResponse struct {
	Mailings []MailingResponse `json:"mailings"`
	// meta
	total  int64
	limit  int32
	offset int32
}

func (r MailingsResponse) Meta() map[string]any {
	return map[string]any{
		"total":  r.total,
		"limit":  r.limit,
		"offset": r.offset,
	}
}

type ProofResponse struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

type BalanceResponse struct {
	Balance float64 `json:"balance"`
}

type UploadTemplateResponse struct {
	TemplateKey string `json:"template_key"`
	Size        int64  `json:"size"`
}

func (UploadTemplateResponse) StatusCode() int { return http.StatusCreated }

type HealthResponse struct {
	Status   string `json:"status"`
	Inflight int64  `json:"inflight"`
}
