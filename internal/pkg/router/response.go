package router

import (
	"log/slog"
	"net/http"

	jsoniter "github.com/json-iterator/go"
	"github.com/shandysiswandi/docmailer/internal/pkg/goerror"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type errorResponse struct {
	Message string            `json:"message" example:"Validation error"`
	Code    string            `json:"code" example:"ERROR_CODE_INVALID_INPUT"`
	Error   map[string]string `json:"error,omitempty"`
}

type successResponse struct {
	Message string         `json:"message" example:"OK"`
	Data    any            `json:"data"`
	Meta    map[string]any `json:"meta,omitempty"`
}

// Optional interfaces a handler result can implement to shape the envelope.
type (
	statusCoder interface{ StatusCode() int }
	messenger   interface{ Message() string }
	metaCarrier interface{ Meta() map[string]any }
)

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to write json response", "status", code, "error", err)
	}
}

// writeError renders err; anything that is not a *goerror.Error is a 500
// with no detail.
func writeError(w http.ResponseWriter, err error) {
	gerr, ok := goerror.As(err)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, errorResponse{
			Message: "Internal server error",
			Code:    goerror.CodeInternal.String(),
		})
		return
	}

	msg := gerr.Msg()
	if msg == "" {
		msg = http.StatusText(gerr.StatusCode())
	}
	writeJSON(w, gerr.StatusCode(), errorResponse{
		Message: msg,
		Code:    gerr.Code().String(),
		Error:   gerr.Fields(),
	})
}

func writeSuccess(w http.ResponseWriter, resp any) {
	code := http.StatusOK
	if sc, ok := resp.(statusCoder); ok {
		code = sc.StatusCode()
	}
	if resp == nil || code == http.StatusNoContent {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	out := successResponse{Message: "OK", Data: resp}
	if m, ok := resp.(messenger); ok {
		out.Message = m.Message()
	}
	if m, ok := resp.(metaCarrier); ok {
		out.Meta = m.Meta()
	}
	writeJSON(w, code, out)
}
