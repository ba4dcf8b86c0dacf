package domain

import "strings"

type ShippingInfo struct {
	Address    string
	CardNumber string
	Expiry     string
	CVV        string
}

// Validate applies the simulated payment gateway rules.
func (s ShippingInfo) Validate() error {
	card := strings.ReplaceAll(s.CardNumber, " ", "")
	switch {
	case len(card) != 16 || !allDigits(card):
		return &InvalidShippingError{Field: "card_number"}
	case len(s.CVV) != 3 || !allDigits(s.CVV):
		return &InvalidShippingError{Field: "cvv"}
	case strings.TrimSpace(s.Address) == "":
		return &InvalidShippingError{Field: "address"}
	}
	return nil
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
