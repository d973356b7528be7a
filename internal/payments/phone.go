package payments

import (
	"regexp"
	"strings"

	apperrors "github.com/gaslink-africa/gaslink-backend/pkg/errors"
)

var kenyanMobilePattern = regexp.MustCompile(`^254[17]\d{8}$`)

// NormalizePhone reduces the many ways customers type a Kenyan mobile number
// (+254..., 07..., bare 7...) to the canonical 254XXXXXXXXX form.
func NormalizePhone(raw string) (string, error) {
	var digits strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	normalized := digits.String()

	switch {
	case strings.HasPrefix(normalized, "254") && len(normalized) == 12:
		// already canonical
	case strings.HasPrefix(normalized, "0") && len(normalized) == 10:
		normalized = "254" + normalized[1:]
	case len(normalized) == 9 && (normalized[0] == '7' || normalized[0] == '1'):
		normalized = "254" + normalized
	}

	if !kenyanMobilePattern.MatchString(normalized) {
		return "", apperrors.New(apperrors.CodeValidation, "invalid Kenyan mobile number")
	}
	return normalized, nil
}
