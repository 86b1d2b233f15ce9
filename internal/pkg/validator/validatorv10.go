package validator

import (
	"errors"
	"log/slog"
	"regexp"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	enTranslations "github.com/go-playground/validator/v10/translations/en"
	"github.com/samber/lo"
)

var ErrTranslatorNotFound = errors.New("english translator not registered")

var (
	// Docmail prints address lines verbatim; control characters break the layout.
	rePrintable = regexp.MustCompile(`^[^\p{Cc}]*$`)
	// A bare file name with a short extension and no directory part.
	reFileName = regexp.MustCompile(`^[^/\\\x00]+\.[A-Za-z0-9]{1,5}$`)
)

type rule struct {
	tag     string
	message string
	valid   func(s string) bool
}

var customRules = []rule{
	{tag: "filename", message: "{0} must be a file name with an extension", valid: reFileName.MatchString},
	{tag: "printable", message: "{0} cannot contain control characters", valid: rePrintable.MatchString},
}

type V10Validator struct {
	validate *validator.Validate
	trans    ut.Translator
}

func NewV10Validator() (*V10Validator, error) {
	validate := validator.New(validator.WithRequiredStructEnabled())

	english := en.New()
	trans, ok := ut.New(english, english).GetTranslator("en")
	if !ok {
		return nil, ErrTranslatorNotFound
	}
	if err := enTranslations.RegisterDefaultTranslations(validate, trans); err != nil {
		return nil, err
	}

	for _, r := range customRules {
		if err := register(validate, trans, r); err != nil {
			return nil, err
		}
	}

	return &V10Validator{validate: validate, trans: trans}, nil
}

func register(validate *validator.Validate, trans ut.Translator, r rule) error {
	err := validate.RegisterValidation(r.tag, func(fl validator.FieldLevel) bool {
		s, ok := fl.Field().Interface().(string)
		return ok && r.valid(s)
	})
	if err != nil {
		return err
	}

	return validate.RegisterTranslation(r.tag, trans,
		func(t ut.Translator) error { return t.Add(r.tag, r.message, false) },
		func(t ut.Translator, fe validator.FieldError) string {
			msg, err := t.T(fe.Tag(), fe.Field())
			if err != nil {
				slog.Warn("missing validation translation", "tag", fe.Tag(), "error", err)
				return fe.Error()
			}
			return msg
		},
	)
}

// Validate returns FieldErrors when data breaks a tag rule, or the
// underlying error when data cannot be validated at all.
func (v *V10Validator) Validate(data any) error {
	err := v.validate.Struct(data)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	out := make(FieldErrors, len(verrs))
	for _, fe := range verrs {
		out[fieldPath(fe.Namespace())] = fe.Translate(v.trans)
	}
	return out
}

// fieldPath turns "Input.Addresses[2].FullName" into "addresses[2].full_name".
func fieldPath(namespace string) string {
	segs := strings.Split(namespace, ".")
	if len(segs) > 1 {
		segs = segs[1:]
	}
	for i, s := range segs {
		name, index, _ := strings.Cut(s, "[")
		segs[i] = lo.SnakeCase(name)
		if index != "" {
			segs[i] += "[" + index
		}
	}
	return strings.Join(segs, ".")
}
