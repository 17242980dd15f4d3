package utils

import (
	"crypto/rand"
	"fmt"
	"strings"
	"time"
)

// Card issuance parameters
const (
	CardNumberPrefix = "400000"
	CardNumberLength = 16
	CardValidYears   = 3
)

// GenerateCardNumber generates a card number with the specified prefix and length
func GenerateCardNumber(prefix string, length int) (string, error) {
	if length < len(prefix) || length > 19 {
		return "", fmt.Errorf("invalid card number length: %d", length)
	}
	if !isDigits(prefix) {
		return "", fmt.Errorf("card number prefix must be numeric: %q", prefix)
	}

	// Generate random digits
	digits := make([]byte, length-len(prefix))
	_, err := rand.Read(digits)
	if err != nil {
		return "", fmt.Errorf("failed to generate random digits: %w", err)
	}

	var builder strings.Builder
	builder.WriteString(prefix)
	for _, b := range digits {
		builder.WriteByte(b%10 + '0')
	}

	cardNumber := builder.String()
	if len(cardNumber) != length {
		return "", fmt.Errorf("generated card number has incorrect length: got %d, want %d", len(cardNumber), length)
	}

	return cardNumber, nil
}

// GenerateExpiryDate returns the expiry date of a card issued on the given day
func GenerateExpiryDate(issued time.Time) time.Time {
	y, m, d := issued.AddDate(CardValidYears, 0, 0).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// IsValidCardNumber reports whether s is a 16 digit card number
func IsValidCardNumber(s string) bool {
	return len(s) == CardNumberLength && isDigits(s)
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
