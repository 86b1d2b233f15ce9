// Package mail sends notification emails. Callers depend on Mail; SMTP is the
// only delivery mechanism wired today.
package mail
