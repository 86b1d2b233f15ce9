package app

import (
	"log/slog"

	"github.com/shandysiswandi/docmailer/internal/mailing"
)

func (a *App) initModules() error {
	if !a.config.GetBool("modules.mailing.enabled") {
		slog.Warn("mailing module disabled")
		return nil
	}

	return mailing.New(mailing.Dependency{
		Ctx:              a.ctx,
		DBConn:           a.dbConn,
		Messaging:        a.messaging,
		Storage:          a.storage,
		Mail:             a.mail,
		DocmailConfig:    a.docmailConfig,
		DocmailTransport: a.docmailTransport,
		Idempotency:      a.idemp,
		Enforcer:         a.casbin,
		Config:           a.config,
		Instrument:       a.ins,
		UID:              a.uid,
		OID:              a.oid,
		UUID:             a.uuid,
		Clock:            a.clock,
		Goroutine:        a.goroutine,
		Validator:        a.validator,
		Router:           a.router,
	})
}
