package docmail

// Mailing holds the mailing-wide options sent with CreateMailing.
type Mailing struct {
	CustomerApplication   string
	ProductType           string
	MailingName           string
	MailingDescription    string
	IsMono                bool
	IsDuplex              bool
	DeliveryType          string
	CourierDeliveryToSelf bool
	DespatchASAP          bool
	DespatchDate          string
	AddressNameFormat     string
	DiscountCode          string
	MinEnvelopeSize       string

	defaults *Mailing
}

var mailingFields = fieldTable[Mailing]{
	stringField("CustomerApplication", func(m *Mailing) *string { return &m.CustomerApplication }),
	stringField("ProductType", func(m *Mailing) *string { return &m.ProductType }),
	stringField("MailingName", func(m *Mailing) *string { return &m.MailingName }),
	stringField("MailingDescription", func(m *Mailing) *string { return &m.MailingDescription }),
	boolField("IsMono", func(m *Mailing) *bool { return &m.IsMono }),
	boolField("IsDuplex", func(m *Mailing) *bool { return &m.IsDuplex }),
	stringField("DeliveryType", func(m *Mailing) *string { return &m.DeliveryType }),
	boolField("CourierDeliveryToSelf", func(m *Mailing) *bool { return &m.CourierDeliveryToSelf }),
	boolField("DespatchASAP", func(m *Mailing) *bool { return &m.DespatchASAP }),
	stringField("DespatchDate", func(m *Mailing) *string { return &m.DespatchDate }),
	stringField("AddressNameFormat", func(m *Mailing) *string { return &m.AddressNameFormat }),
	stringField("DiscountCode", func(m *Mailing) *string { return &m.DiscountCode }),
	stringField("MinEnvelopeSize", func(m *Mailing) *string { return &m.MinEnvelopeSize }),
}

// NewMailing returns a Mailing seeded with d.
//
// The seeded values are what Reset restores.
func NewMailing(d MailingDefaults) *Mailing {
	m := &Mailing{
		ProductType:       "A4Letter",
		IsMono:            !d.Colour,
		IsDuplex:          d.Duplex,
		DeliveryType:      d.Delivery,
		DespatchASAP:      true,
		AddressNameFormat: "Full Name",
	}
	snapshot := *m
	m.defaults = &snapshot
	return m
}

func (m *Mailing) Set(field string, value any) error { return mailingFields.set(m, field, value) }

func (m *Mailing) Get(field string) (any, bool) { return mailingFields.get(m, field) }

// Reset restores field to the value the Mailing was created with.
func (m *Mailing) Reset(field string) error {
	d := m.defaults
	if d == nil {
		d = NewMailing(DefaultConfig().Defaults)
	}
	return mailingFields.reset(m, d, field)
}

func (m *Mailing) Fields() []string { return mailingFields.names() }

// Params returns every field keyed by its Docmail parameter name.
func (m *Mailing) Params() Params { return mailingFields.params(m) }
