package inbound

import (
	"github.com/shandysiswandi/docmailer/internal/pkg/router"
)

func RegisterHTTPEndpoint(r *router.Router, uc uc) {
	end := &HTTPEndpoint{uc: uc}

	r.GET("/health", end.Health)

	r.POST("/api/v1/mailings", end.SubmitMailing)
	r.GET("/api/v1/mailings", end.ListMailings)
	r.GET("/api/v1/mailings/:id", end.GetMailing)
	r.DELETE("/api/v1/mailings/:id", end.DeleteMailing)
	r.GET("/api/v1/mailings/:id/proof", end.GetProof)

	r.PUT("/api/v1/templates", end.UploadTemplate)
	r.GET("/api/v1/balance", end.GetBalance)
}
