// Package clock hides time.Now behind Clocker so proof URL expiry and token
// timestamps can be pinned in tests.
package clock
