package value

import "strings"

// EmailAddress is a mailbox address.
type EmailAddress struct {
	Address string
}

// NewEmailAddress returns an EmailAddress in lower case.
func NewEmailAddress(address string) EmailAddress {
	return EmailAddress{Address: strings.ToLower(strings.TrimSpace(address))}
}

// Kind implements Value.
func (e EmailAddress) Kind() Kind { return KindEmailAddress }

// Key implements Value.
func (e EmailAddress) Key() string {
	return key(KindEmailAddress, strings.ToLower(strings.TrimSpace(e.Address)))
}

// String implements Value.
func (e EmailAddress) String() string { return strings.ToLower(strings.TrimSpace(e.Address)) }

// Domain returns the normalized domain part of the address.
func (e EmailAddress) Domain() string {
	return emailDomain(strings.TrimSpace(e.Address))
}
