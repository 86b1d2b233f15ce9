package docmail

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
)

// TemplateFile is the document printed for every address of a mailing.
type TemplateFile struct {
	TemplateName               string
	FileName                   string
	FileData                   []byte
	DocumentType               string
	AddressedDocument          bool
	AddressFontCode            string
	TemplateType               string
	BackgroundName             string
	CanBeginOnBack             bool
	NextTemplateCanBeginOnBack bool
	ProtectedAreaPassword      string
	EncryptionPassword         string
	BleedSupplied              bool
	Copies                     int
	Instructions               string
}

var templateFields = fieldTable[TemplateFile]{
	stringField("TemplateName", func(t *TemplateFile) *string { return &t.TemplateName }),
	stringField("FileName", func(t *TemplateFile) *string { return &t.FileName }),
	{
		name: "FileData",
		get:  func(t *TemplateFile) any { return t.FileData },
		set: func(t *TemplateFile, v any) error {
			switch d := v.(type) {
			case []byte:
				t.FileData = d
			case string:
				t.FileData = []byte(d)
			default:
				return fmt.Errorf("%w: FileData expects []byte or string, got %T", ErrInvalidValue, v)
			}
			return nil
		},
	},
	stringField("DocumentType", func(t *TemplateFile) *string { return &t.DocumentType }),
	boolField("AddressedDocument", func(t *TemplateFile) *bool { return &t.AddressedDocument }),
	stringField("AddressFontCode", func(t *TemplateFile) *string { return &t.AddressFontCode }),
	stringField("TemplateType", func(t *TemplateFile) *string { return &t.TemplateType }),
	stringField("BackgroundName", func(t *TemplateFile) *string { return &t.BackgroundName }),
	boolField("CanBeginOnBack", func(t *TemplateFile) *bool { return &t.CanBeginOnBack }),
	boolField("NextTemplateCanBeginOnBack", func(t *TemplateFile) *bool { return &t.NextTemplateCanBeginOnBack }),
	stringField("ProtectedAreaPassword", func(t *TemplateFile) *string { return &t.ProtectedAreaPassword }),
	stringField("EncryptionPassword", func(t *TemplateFile) *string { return &t.EncryptionPassword }),
	boolField("BleedSupplied", func(t *TemplateFile) *bool { return &t.BleedSupplied }),
	intField("Copies", func(t *TemplateFile) *int { return &t.Copies }),
	stringField("Instructions", func(t *TemplateFile) *string { return &t.Instructions }),
}

func templateDefaults() TemplateFile {
	return TemplateFile{
		DocumentType:      "A4Letter",
		AddressedDocument: true,
		TemplateType:      "Document",
		Copies:            1,
	}
}

// NewTemplateFile returns a template holding data under fileName.
func NewTemplateFile(fileName string, data []byte) *TemplateFile {
	t := templateDefaults()
	t.FileName = fileName
	t.TemplateName = fileName
	t.FileData = data
	return &t
}

// LoadTemplateFile reads the document at path.
func LoadTemplateFile(path string) (*TemplateFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("docmail: load template: %w", err)
	}
	return NewTemplateFile(filepath.Base(path), data), nil
}

func (t *TemplateFile) Set(field string, value any) error { return templateFields.set(t, field, value) }

func (t *TemplateFile) Get(field string) (any, bool) { return templateFields.get(t, field) }

func (t *TemplateFile) Reset(field string) error {
	d := templateDefaults()
	return templateFields.reset(t, &d, field)
}

func (t *TemplateFile) Fields() []string { return templateFields.names() }

// Params returns every field keyed by its Docmail parameter name, with
// FileData base64 encoded.
func (t *TemplateFile) Params() Params {
	p := templateFields.params(t)
	p["FileData"] = base64.StdEncoding.EncodeToString(t.FileData)
	return p
}
