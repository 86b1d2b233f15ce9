package inbound

import (
	"github.com/samber/lo"
	"github.com/shandysiswandi/docmailer/internal/mailing/entity"
	"github.com/shandysiswandi/docmailer/internal/mailing/usecase"
	"github.com/shandysiswandi/docmailer/internal/pkg/router"
)

const headerIdempotencyKey = "Idempotency-Key"

type HTTPEndpoint struct {
	uc uc
}

// Health reports liveness and the number of submissions in flight.
// @Summary Health check
// @Tags Health
// @Produce json
// @Success 200 {object} router.successResponse{data=HealthResponse} "Service is up"
// @Router /health [get]
func (h *HTTPEndpoint) Health(r *router.Request) (any, error) {
	return HealthResponse{Status: "ok", Inflight: h.uc.Inflight()}, nil
}

// SubmitMailing sends a mailing to Docmail.
// @Summary Submit mailing
// @Description Creates the mailing at Docmail, attaches the addresses and template, then submits it for processing.
// @Tags Mailing
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param Idempotency-Key header string false "Key that makes retries of the same submission safe"
// @Param request body SubmitMailingRequest true "Mailing payload"
// @Success 201 {object} router.successResponse{data=SubmitMailingResponse} "Mailing submitted"
// @Failure 400 {object} router.errorResponse "Invalid request body"
// @Failure 401 {object} router.errorResponse "Unauthorized"
// @Failure 403 {object} router.errorResponse "Forbidden"
// @Failure 409 {object} router.errorResponse "Idempotency key already used"
// @Failure 422 {object} router.errorResponse "Validation error"
// @Failure 502 {object} router.errorResponse "Docmail rejected the mailing"
// @Failure 500 {object} router.errorResponse "Internal server error"
// @Router /api/v1/mailings [post]
func (h *HTTPEndpoint) SubmitMailing(r *router.Request) (any, error) {
	var req SubmitMailingRequest
	if err := r.Decode(&req); err != nil {
		return nil, err
	}

	addresses := lo.Map(req.Addresses, func(a AddressRequest, _ int) usecase.AddressInput {
		return usecase.AddressInput{
			FullName: a.FullName,
			Address1: a.Address1,
			Address2: a.Address2,
			Address3: a.Address3,
			Address4: a.Address4,
			Address5: a.Address5,
			Extra:    a.Extra,
		}
	})

	out, err := h.uc.SubmitMailing(r.Context(), usecase.SubmitMailingInput{
		IdempotencyKey: r.Header.Get(headerIdempotencyKey),
		Name:           req.Name,
		NotifyEmail:    req.NotifyEmail,
		Options:        req.Options,
		Addresses:      addresses,
		Template: usecase.TemplateInput{
			FileName:    req.Template.FileName,
			Data:        req.Template.Data,
			TemplateKey: req.Template.TemplateKey,
			Extra:       req.Template.Extra,
		},
	})
	if err != nil {
		return nil, err
	}

	return SubmitMailingResponse{
		ID:          out.ID,
		Status:      out.Status.String(),
		MailingGUID: out.MailingGUID,
		OrderRef:    out.OrderRef,
	}, nil
}

// ListMailings returns the caller's mailings, newest first.
// @Summary List mailings
// @Tags Mailing
// @Security BearerAuth
// @Produce json
// @Param status query string false "Filter by status (pending|submitted|rejected|failed|completed|processing_error|timed_out)"
// @Param limit query int false "Pagination limit"
// @Param offset query int false "Pagination offset"
// @Success 200 {object} router.successResponse{data=MailingsResponse} "Mailing list"
// @Failure 400 {object} router.errorResponse "Invalid query parameters"
// @Failure 401 {object} router.errorResponse "Unauthorized"
// @Failure 422 {object} router.errorResponse "Validation error"
// @Failure 500 {object} router.errorResponse "Internal server error"
// @Router /api/v1/mailings [get]
func (h *HTTPEndpoint) ListMailings(r *router.Request) (any, error) {
	limit, err := r.QueryInt32("limit")
	if err != nil {
		return nil, err
	}
	offset, err := r.QueryInt32("offset")
	if err != nil {
		return nil, err
	}

	out, err := h.uc.ListMailings(r.Context(), usecase.ListMailingsInput{
		Status: r.Query("status"),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		return nil, err
	}

	return MailingsResponse{
		Mailings: lo.Map(out.Mailings, func(m entity.Mailing, _ int) MailingResponse {
			return toMailingResponse(&m)
		}),
		total:    out.Total,
		limit:    out.Limit,
		offset:   out.Offset,
	}, nil
}

// GetMailing returns one mailing.
// @Summary Get mailing
// @Tags Mailing
// @Security BearerAuth
// @Produce json
// @Param id path int true "Mailing ID"
// @Success 200 {object} router.successResponse{data=MailingDetailResponse} "Mailing detail"
// @Failure 400 {object} router.errorResponse "Invalid path parameter"
// @Failure 401 {object} router.errorResponse "Unauthorized"
// @Failure 404 {object} router.errorResponse "Mailing not found"
// @Failure 500 {object} router.errorResponse "Internal server error"
// @Router /api/v1/mailings/{id} [get]
func (h *HTTPEndpoint) GetMailing(r *router.Request) (any, error) {
	id, err := r.ParamID("id")
	if err != nil {
		return nil, err
	}

	m, err := h.uc.GetMailing(r.Context(), usecase.GetMailingInput{ID: id})
	if err != nil {
		return nil, err
	}

	return MailingDetailResponse{Mailing: toMailingResponse(m)}, nil
}

// DeleteMailing deletes a mailing at Docmail and locally.
// @Summary Delete mailing
// @Tags Mailing
// @Security BearerAuth
// @Param id path int true "Mailing ID"
// @Success 204 "No Content"
// @Failure 400 {object} router.errorResponse "Invalid path parameter"
// @Failure 401 {object} router.errorResponse "Unauthorized"
// @Failure 403 {object} router.errorResponse "Forbidden"
// @Failure 404 {object} router.errorResponse "Mailing not found"
// @Failure 502 {object} router.errorResponse "Docmail refused the deletion"
// @Failure 500 {object} router.errorResponse "Internal server error"
// @Router /api/v1/mailings/{id} [delete]
func (h *HTTPEndpoint) DeleteMailing(r *router.Request) (any, error) {
	id, err := r.ParamID("id")
	if err != nil {
		return nil, err
	}

	return nil, h.uc.DeleteMailing(r.Context(), usecase.DeleteMailingInput{ID: id})
}

// GetProof returns a short lived download link for the mailing proof PDF.
// @Summary Get mailing proof
// @Tags Mailing
// @Security BearerAuth
// @Produce json
// @Param id path int true "Mailing ID"
// @Success 200 {object} router.successResponse{data=ProofResponse} "Proof link"
// @Failure 400 {object} router.errorResponse "Invalid path parameter"
// @Failure 401 {object} router.errorResponse "Unauthorized"
// @Failure 404 {object} router.errorResponse "Proof not available"
// @Failure 502 {object} router.errorResponse "Docmail is unavailable"
// @Failure 500 {object} router.errorResponse "Internal server error"
// @Router /api/v1/mailings/{id}/proof [get]
func (h *HTTPEndpoint) GetProof(r *router.Request) (any, error) {
	id, err := r.ParamID("id")
	if err != nil {
		return nil, err
	}

	out, err := h.uc.GetProof(r.Context(), usecase.GetProofInput{ID: id})
	if err != nil {
		return nil, err
	}

	return ProofResponse{URL: out.URL, ExpiresAt: out.ExpiresAt}, nil
}

// UploadTemplate stores a template document for later submissions.
// @Summary Upload template
// @Description Stores a template file. The returned key can be sent as template_key when submitting mailings.
// @Tags Template
// @Security BearerAuth
// @Accept multipart/form-data
// @Produce json
// @Param filename query string false "File name stored with the template, defaults to the uploaded file name"
// @Param file formData file true "Template document (.doc, .docx, .pdf, .rtf)"
// @Success 201 {object} router.successResponse{data=UploadTemplateResponse} "Template stored"
// @Failure 400 {object} router.errorResponse "Invalid multipart payload"
// @Failure 401 {object} router.errorResponse "Unauthorized"
// @Failure 403 {object} router.errorResponse "Forbidden"
// @Failure 422 {object} router.errorResponse "Validation error"
// @Failure 500 {object} router.errorResponse "Internal server error"
// @Router /api/v1/templates [put]
func (h *HTTPEndpoint) UploadTemplate(r *router.Request) (any, error) {
	file, err := r.File("file")
	if err != nil {
		return nil, err
	}
	defer file.Close()

	name := r.Query("filename")
	if name == "" {
		name = file.FileName()
	}

	out, err := h.uc.UploadTemplate(r.Context(), usecase.UploadTemplateInput{
		FileName: name,
		File:     file,
	})
	if err != nil {
		return nil, err
	}

	return UploadTemplateResponse{TemplateKey: out.TemplateKey, Size: out.Size}, nil
}

// GetBalance returns the Docmail account balance.
// @Summary Get account balance
// @Tags Account
// @Security BearerAuth
// @Produce json
// @Success 200 {object} router.successResponse{data=BalanceResponse} "Account balance"
// @Failure 401 {object} router.errorResponse "Unauthorized"
// @Failure 403 {object} router.errorResponse "Forbidden"
// @Failure 502 {object} router.errorResponse "Docmail is unavailable"
// @Failure 500 {object} router.errorResponse "Internal server error"
// @Router /api/v1/balance [get]
func (h *HTTPEndpoint) GetBalance(r *router.Request) (any, error) {
	balance, err := h.uc.GetBalance(r.Context())
	if err != nil {
		return nil, err
	}

	return BalanceResponse{Balance: balance}, nil
}

func toMailingResponse(m *entity.Mailing) MailingResponse {
	return MailingResponse{
		ID:           m.ID,
		ClientID:     m.ClientID,
		Name:         m.Name,
		Status:       m.Status.String(),
		State:        m.State,
		FailedStep:   m.FailedStep,
		MailingGUID:  m.MailingGUID,
		OrderRef:     m.OrderRef,
		AddressCount: m.AddressCount,
		RemoteStatus: m.RemoteStatus,
		Diagnostic:   m.Diagnostic,
		Error:        m.Error,
		HasProof:     m.ProofKey != "",
		Options:      m.Options,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}
