package docmail

// CheckError inspects a call result for embedded error fields.
//
// An empty result, or one without a truthy "Error code", passes.
func CheckError(resp string) error {
	if resp == "" {
		return nil
	}

	code, ok := GetField(resp, "Error code")
	if !ok || !truthy(code) {
		return nil
	}

	name, _ := GetField(resp, "Error code string")
	msg, _ := GetField(resp, "Error message")

	return &RemoteServiceError{Code: code, Name: name, Message: msg}
}
