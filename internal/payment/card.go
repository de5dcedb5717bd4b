package payment

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// ErrInvalidFormat is returned when a card number, network, CVV or expiry
// does not match the accepted shape.
var ErrInvalidFormat = errors.New("payment: invalid card format")

// ErrExpiredCard is returned when the card expiry month is in the past.
var ErrExpiredCard = errors.New("payment: card expired")

// Network identifies the accepted card networks.
type Network string

const (
	NetworkVisa       Network = "visa"
	NetworkMastercard Network = "mastercard"
)

var (
	visaPattern       = regexp.MustCompile(`^4\d{15}$`)
	mastercardPattern = regexp.MustCompile(`^5[1-5]\d{14}$`)
	cvvPattern        = regexp.MustCompile(`^\d{3}$`)
	expiryPattern     = regexp.MustCompile(`^(0[1-9]|1[0-2])/(\d{2})$`)
)

// Card is the format-only card presented at settlement. No charge is ever
// attempted against it.
type Card struct {
	Number string `json:"number" validate:"required"`
	CVV    string `json:"cvv" validate:"required"`
	Expiry string `json:"expiry" validate:"required"` // MM/YY
}

// Validate checks number length and network prefix, the Luhn checksum, the
// three-digit CVV and that the MM/YY expiry is not in the past at asOf.
func (c Card) Validate(asOf time.Time) (Network, error) {
	number := strings.ReplaceAll(strings.TrimSpace(c.Number), " ", "")
	network, err := detectNetwork(number)
	if err != nil {
		return "", err
	}
	if !luhnValid(number) {
		return "", fmt.Errorf("checksum: %w", ErrInvalidFormat)
	}
	if !cvvPattern.MatchString(strings.TrimSpace(c.CVV)) {
		return "", fmt.Errorf("cvv: %w", ErrInvalidFormat)
	}
	if err := validateExpiry(strings.TrimSpace(c.Expiry), asOf); err != nil {
		return "", err
	}
	return network, nil
}

func detectNetwork(number string) (Network, error) {
	switch {
	case visaPattern.MatchString(number):
		return NetworkVisa, nil
	case mastercardPattern.MatchString(number):
		return NetworkMastercard, nil
	}
	return "", fmt.Errorf("number: %w", ErrInvalidFormat)
}

// luhnValid runs the standard mod-10 checksum over a digit string.
func luhnValid(number string) bool {
	sum := 0
	double := false
	for i := len(number) - 1; i >= 0; i-- {
		d := int(number[i] - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}

// validateExpiry accepts the card through the last day of its expiry month.
func validateExpiry(expiry string, asOf time.Time) error {
	match := expiryPattern.FindStringSubmatch(expiry)
	if match == nil {
		return fmt.Errorf("expiry %q: %w", expiry, ErrInvalidFormat)
	}
	month := int(match[1][0]-'0')*10 + int(match[1][1]-'0')
	year := 2000 + int(match[2][0]-'0')*10 + int(match[2][1]-'0')
	endOfMonth := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC).
		AddDate(0, 1, 0)
	if !asOf.Before(endOfMonth) {
		return fmt.Errorf("expiry %s: %w", expiry, ErrExpiredCard)
	}
	return nil
}
