// Package docmail is a client for the Docmail postal-mailing web service.
//
// A Client collects one Mailing, an ordered list of Address values and a single
// TemplateFile, then Send drives the remote calls that make up a submission:
//
//	CreateMailing -> AddAddress (per address) -> AddTemplateFile -> ProcessMailing
//
// When any step fails after Docmail assigned a mailing GUID, the mailing is
// deleted again before Send returns. StatusPoller checks the processing status
// afterwards.
//
// Every Docmail call returns a plain-text payload of "Key: Value" lines inside
// a "<Call>Result" element; GetField reads single values out of it and
// CheckError turns embedded error fields into a *RemoteServiceError.
//
// A Client belongs to one submission and must not be shared between
// goroutines. Clients may share a Transport.
package docmail
