package app

import (
	"github.com/shandysiswandi/docmailer/internal/pkg/config"
	"github.com/shandysiswandi/docmailer/internal/pkg/docmail"
)

// LoadDocmailConfig reads the "docmail" section. Unset keys keep the live service defaults.
func LoadDocmailConfig(c config.Config) docmail.Config {
	cfg := docmail.DefaultConfig()
	if v := c.GetString("docmail.wsdl"); v != "" {
		cfg.WSDL = v
	}
	if v := c.GetString("docmail.namespace"); v != "" {
		cfg.Namespace = v
	}
	if v := c.GetSecond("docmail.timeout_seconds"); v > 0 {
		cfg.Timeout = v
	}
	cfg.Username = c.GetString("docmail.username")
	cfg.Password = c.GetString("docmail.password")
	if v := c.GetString("docmail.application_name"); v != "" {
		cfg.ApplicationName = v
	}
	cfg.FeedbackEmail = c.GetString("docmail.feedback_email")
	cfg.SubmitAfterSend = c.GetBool("docmail.submit_after_send")
	if v := c.GetString("docmail.payment_method"); v != "" {
		cfg.PaymentMethod = v
	}
	if v := c.GetString("docmail.defaults.duplex"); v != "" {
		cfg.Defaults.Duplex = c.GetBool("docmail.defaults.duplex")
	}
	cfg.Defaults.Colour = c.GetBool("docmail.defaults.colour")
	if v := c.GetString("docmail.defaults.delivery"); v != "" {
		cfg.Defaults.Delivery = v
	}
	if v := c.GetInt("docmail.poll.attempts"); v > 0 {
		cfg.PollAttempts = v
	}
	if v := c.GetSecond("docmail.poll.interval_seconds"); v > 0 {
		cfg.PollInterval = v
	}

	return cfg
}
