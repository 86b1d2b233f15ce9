package event

const MailingSubmittedDestination string = "mailing_submitted"
const MailingSubmittedConsumerTracker string = "mailing_submitted_tracker"

type MailingSubmittedMessage struct {
	MailingID   int64  `json:"mailing_id"`
	ClientID    string `json:"client_id"`
	MailingGUID string `json:"mailing_guid"`
	OrderRef    string `json:"order_ref"`
	NotifyEmail string `json:"notify_email"`
}
