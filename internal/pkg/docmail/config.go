package docmail

import "time"

// Config holds everything a Client reads at construction time.
type Config struct {
	// WSDL is the service description URL; the SOAP endpoint is the same URL without the query.
	WSDL string
	// Namespace is the target namespace of the Docmail web service.
	Namespace string
	Timeout   time.Duration

	Username string
	Password string

	// ApplicationName fills Mailing.CustomerApplication when it is empty at send time.
	ApplicationName string
	// FeedbackEmail receives processing success and error reports. Empty disables them.
	FeedbackEmail string
	// SubmitAfterSend approves the mailing for printing as part of ProcessMailing.
	SubmitAfterSend bool
	// PaymentMethod is "Invoice" or "Topup".
	PaymentMethod string

	Defaults MailingDefaults

	PollAttempts int
	PollInterval time.Duration
}

// MailingDefaults seed every Mailing created by a Client.
type MailingDefaults struct {
	Duplex   bool
	Colour   bool
	Delivery string
}

const (
	DefaultWSDL            = "https://www.cfhdocmail.com/LiveAPI2/DMWS.asmx?WSDL"
	DefaultNamespace       = "https://www.cfhdocmail.com/LiveAPI2/Ws"
	DefaultTimeout         = 240 * time.Second
	DefaultApplicationName = "Docmail for Laravel"
	DefaultPaymentMethod   = "Invoice"
	DefaultPollAttempts    = 10
	DefaultPollInterval    = 10 * time.Second
)

// DefaultConfig returns a Config pointing at the live service without credentials.
func DefaultConfig() Config {
	return Config{
		WSDL:            DefaultWSDL,
		Namespace:       DefaultNamespace,
		Timeout:         DefaultTimeout,
		ApplicationName: DefaultApplicationName,
		PaymentMethod:   DefaultPaymentMethod,
		Defaults: MailingDefaults{
			Duplex:   true,
			Colour:   false,
			Delivery: "Standard",
		},
		PollAttempts: DefaultPollAttempts,
		PollInterval: DefaultPollInterval,
	}
}

// withDefaults fills zero values that would make the client unusable.
func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.WSDL == "" {
		c.WSDL = def.WSDL
	}
	if c.Namespace == "" {
		c.Namespace = def.Namespace
	}
	if c.Timeout <= 0 {
		c.Timeout = def.Timeout
	}
	if c.ApplicationName == "" {
		c.ApplicationName = def.ApplicationName
	}
	if c.PaymentMethod == "" {
		c.PaymentMethod = def.PaymentMethod
	}
	if c.Defaults.Delivery == "" {
		c.Defaults.Delivery = def.Defaults.Delivery
	}
	if c.PollAttempts <= 0 {
		c.PollAttempts = def.PollAttempts
	}
	if c.PollInterval <= 0 {
		c.PollInterval = def.PollInterval
	}
	return c
}
