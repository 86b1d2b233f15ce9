package docmail

import (
	"strconv"
	"strings"
)

// GetField returns the value of the first "name: value" line in resp.
//
// Lines are split on the first colon only, so values may contain colons.
// A missing field is reported through the boolean and is not an error.
func GetField(resp, name string) (string, bool) {
	for line := range strings.SplitSeq(resp, "\n") {
		key, value, ok := strings.Cut(line, ":")
		if !ok || key != name {
			continue
		}
		return strings.TrimRight(strings.TrimLeft(value, " "), "\r"), true
	}
	return "", false
}

// truthy reports whether a result value is set: "True", "1" and free text are,
// while "", "0" and "False" are not.
func truthy(v string) bool {
	v = strings.TrimSpace(v)
	if v == "" {
		return false
	}
	if b, err := strconv.ParseBool(v); err == nil {
		return b
	}
	if n, err := strconv.ParseFloat(v, 64); err == nil {
		return n != 0
	}
	return true
}

func fieldTruthy(resp, name string) bool {
	v, _ := GetField(resp, name)
	return truthy(v)
}
