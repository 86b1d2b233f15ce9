package router

import (
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/julienschmidt/httprouter"
	"github.com/shandysiswandi/docmailer/internal/pkg/goerror"
)

// Request is what handlers receive: the inbound request plus typed accessors
// that fail with invalid-format errors.
type Request struct {
	*http.Request
}

func (r *Request) Param(key string) string {
	return httprouter.ParamsFromContext(r.Context()).ByName(key)
}

// ParamID reads a positive integer path parameter.
func (r *Request) ParamID(key string) (int64, error) {
	id, err := strconv.ParseInt(r.Param(key), 10, 64)
	if err != nil || id <= 0 {
		return 0, goerror.NewInvalidFormat(key + " must be a positive integer")
	}
	return id, nil
}

func (r *Request) Query(key string) string {
	return strings.TrimSpace(r.URL.Query().Get(key))
}

// QueryInt32 reads an optional integer query value; absent means zero.
func (r *Request) QueryInt32(key string) (int32, error) {
	raw := r.Query(key)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseInt(raw, 10, 32)
	if err != nil {
		return 0, goerror.NewInvalidFormat("query " + key + " must be an integer")
	}
	return int32(v), nil
}

// Decode reads exactly one JSON document into dst. Unknown fields are
// rejected.
func (r *Request) Decode(dst any) error {
	if r.Body == nil || r.Body == http.NoBody {
		return goerror.NewInvalidFormat("Request body is required")
	}
	if ct := r.Header.Get("Content-Type"); ct != "" {
		if mt, _, _ := mime.ParseMediaType(ct); mt != "application/json" {
			return goerror.NewInvalidFormat("Content-Type must be application/json")
		}
	}

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return bodyError(err)
	}
	if dec.More() {
		return goerror.NewInvalidFormat("Request body must hold a single JSON document")
	}
	return nil
}

// File returns the multipart part named field. Parts before it are skipped
// without buffering; the caller closes the returned part.
func (r *Request) File(field string) (*multipart.Part, error) {
	mr, err := r.MultipartReader()
	if err != nil {
		return nil, goerror.NewInvalidFormat("Request must be multipart/form-data")
	}

	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return nil, goerror.NewInvalidFormat("Form field " + field + " is required")
		}
		if err != nil {
			return nil, bodyError(err)
		}
		if part.FormName() == field {
			return part, nil
		}
		if _, err := io.Copy(io.Discard, part); err != nil {
			_ = part.Close()
			return nil, bodyError(err)
		}
		_ = part.Close()
	}
}

func bodyError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return goerror.NewInvalidFormat("Request body exceeds " + strconv.FormatInt(tooLarge.Limit, 10) + " bytes")
	}
	return goerror.NewInvalidFormat()
}
