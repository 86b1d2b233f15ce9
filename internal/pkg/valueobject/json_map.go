// Package valueobject holds small value types shared by storage and transport.
package valueobject

import (
	"database/sql/driver"
	"errors"
	"fmt"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var ErrScanValueNotBytes = errors.New("valueobject: jsonmap scan value is not []byte")

// JSONMap is a free-form JSON object stored in a jsonb column. Mailing option
// overrides keep their Docmail field names as keys.
// @swaggertype object
type JSONMap map[string]any

// Value stores nil as an empty object so the column never holds JSON null.
func (j JSONMap) Value() (driver.Value, error) {
	if j == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(j)
}

func (j *JSONMap) Scan(value any) error {
	var raw []byte
	switch v := value.(type) {
	case nil:
		*j = JSONMap{}
		return nil
	case map[string]any:
		*j = JSONMap(v)
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("%w: got %T", ErrScanValueNotBytes, value)
	}

	out := JSONMap{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return err
	}
	*j = out
	return nil
}

// Clone copies the top level so callers can add keys without touching the source.
func (j JSONMap) Clone() JSONMap {
	out := make(JSONMap, len(j))
	for k, v := range j {
		out[k] = v
	}
	return out
}
