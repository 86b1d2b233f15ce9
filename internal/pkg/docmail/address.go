package docmail

// Address is one recipient of a mailing.
type Address struct {
	Title             string
	FirstName         string
	Surname           string
	FullName          string
	JobTitle          string
	CompanyName       string
	Address1          string
	Address2          string
	Address3          string
	Address4          string
	Address5          string
	Address6          string
	Email             string
	Telephone         string
	DirectLine        string
	Mobile            string
	Facsimile         string
	ExtraInfo         string
	Notes             string
	CustomerAddressID string
	UseForProof       bool
}

var addressFields = fieldTable[Address]{
	stringField("Title", func(a *Address) *string { return &a.Title }),
	stringField("FirstName", func(a *Address) *string { return &a.FirstName }),
	stringField("Surname", func(a *Address) *string { return &a.Surname }),
	stringField("FullName", func(a *Address) *string { return &a.FullName }),
	stringField("JobTitle", func(a *Address) *string { return &a.JobTitle }),
	stringField("CompanyName", func(a *Address) *string { return &a.CompanyName }),
	stringField("Address1", func(a *Address) *string { return &a.Address1 }),
	stringField("Address2", func(a *Address) *string { return &a.Address2 }),
	stringField("Address3", func(a *Address) *string { return &a.Address3 }),
	stringField("Address4", func(a *Address) *string { return &a.Address4 }),
	stringField("Address5", func(a *Address) *string { return &a.Address5 }),
	stringField("Address6", func(a *Address) *string { return &a.Address6 }),
	stringField("Email", func(a *Address) *string { return &a.Email }),
	stringField("Telephone", func(a *Address) *string { return &a.Telephone }),
	stringField("DirectLine", func(a *Address) *string { return &a.DirectLine }),
	stringField("Mobile", func(a *Address) *string { return &a.Mobile }),
	stringField("Facsimile", func(a *Address) *string { return &a.Facsimile }),
	stringField("ExtraInfo", func(a *Address) *string { return &a.ExtraInfo }),
	stringField("Notes", func(a *Address) *string { return &a.Notes }),
	stringField("CustomerAddressID", func(a *Address) *string { return &a.CustomerAddressID }),
	boolField("UseForProof", func(a *Address) *bool { return &a.UseForProof }),
}

// BasicAddress builds an Address from a name and up to four address lines.
// Lines beyond the fourth are ignored.
func BasicAddress(fullName, address1, address2 string, more ...string) *Address {
	a := &Address{FullName: fullName, Address1: address1, Address2: address2}
	if len(more) > 0 {
		a.Address3 = more[0]
	}
	if len(more) > 1 {
		a.Address4 = more[1]
	}
	return a
}

func (a *Address) Set(field string, value any) error { return addressFields.set(a, field, value) }

func (a *Address) Get(field string) (any, bool) { return addressFields.get(a, field) }

// Reset clears field. No Address field has a non-empty default.
func (a *Address) Reset(field string) error { return addressFields.reset(a, &Address{}, field) }

func (a *Address) Fields() []string { return addressFields.names() }

func (a *Address) Params() Params { return addressFields.params(a) }
