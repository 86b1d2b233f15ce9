package docmail

import (
	"fmt"

	"github.com/samber/lo"
)

// Params holds the named arguments of one remote call.
//
// Values are string, bool, int, float64 or a nested Params for structured
// arguments such as ExtendedCall properties.
type Params map[string]any

// Credentials authenticate every Docmail call.
type Credentials struct {
	Username string
	Password string
}

// Session identifies the mailing created by CreateMailing.
type Session struct {
	MailingGUID string
	OrderRef    string
}

// RequestBuilder merges caller parameters with the parameters every call needs.
type RequestBuilder struct {
	creds   Credentials
	session *Session
}

// NewRequestBuilder returns a builder reading the mailing GUID from session at build time.
func NewRequestBuilder(creds Credentials, session *Session) *RequestBuilder {
	return &RequestBuilder{creds: creds, session: session}
}

// Build returns extra merged with the credentials, the text return format and,
// when requireSession is set, the current mailing GUID.
//
// Required parameters override caller ones with the same name, and any
// parameter holding an empty string is dropped.
func (b *RequestBuilder) Build(extra Params, requireSession bool) (Params, error) {
	guid := ""
	if b.session != nil {
		guid = b.session.MailingGUID
	}
	if requireSession && guid == "" {
		return nil, fmt.Errorf("%w: mailing guid is not set", ErrPrecondition)
	}

	required := Params{
		"Username":     b.creds.Username,
		"Password":     b.creds.Password,
		"ReturnFormat": returnFormatText,
	}
	if requireSession {
		required["MailingGUID"] = guid
	}

	return compact(lo.Assign(extra, required)), nil
}

// statusParams builds GetStatus arguments outside the session merge: status
// checks may run for mailings this builder never created.
func (b *RequestBuilder) statusParams(guid string) Params {
	return compact(Params{
		"Username":     b.creds.Username,
		"Password":     b.creds.Password,
		"MailingGUID":  guid,
		"ReturnFormat": returnFormatText,
	})
}

// processingErrorParams asks ExtendedCall for the reason a mailing failed processing.
func (b *RequestBuilder) processingErrorParams(guid string) Params {
	return compact(Params{
		"Username":     b.creds.Username,
		"Password":     b.creds.Password,
		"MethodName":   "GetProcessingError",
		"ReturnFormat": returnFormatText,
		"Properties": Params{
			"PropertyName":  "GetProcessingError",
			"PropertyValue": guid,
		},
	})
}

func compact(p Params) Params {
	return lo.OmitBy(p, func(_ string, v any) bool {
		s, ok := v.(string)
		return ok && s == ""
	})
}

const returnFormatText = "Text"
