package usecase

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/washlytics/tenant-onboarding/internal/core/domain"
)

var (
	// ErrSubdomainInvalid indicates the candidate subdomain is not a valid DNS label.
	ErrSubdomainInvalid = errors.New("subdomain invalid")
	// ErrSubdomainReserved indicates the subdomain collides with a platform-reserved name.
	ErrSubdomainReserved = errors.New("subdomain reserved")
	// ErrPhoneInvalid indicates the phone number is not in E.164 format.
	ErrPhoneInvalid = errors.New("phone number invalid")
	// ErrEmailInvalid indicates the email address fails the basic pattern check.
	ErrEmailInvalid = errors.New("email address invalid")
	// ErrDraftIncomplete indicates required registration fields are missing.
	ErrDraftIncomplete = errors.New("registration draft incomplete")
)

var (
	subdomainPattern = regexp.MustCompile(`^[a-z0-9-]+$`)
	phonePattern     = regexp.MustCompile(`^\+[1-9]\d{1,14}$`)
	emailPattern     = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
)

// reservedSubdomains are platform-owned names that are never available to
// tenants regardless of database state.
var reservedSubdomains = map[string]struct{}{
	"www":       {},
	"api":       {},
	"app":       {},
	"admin":     {},
	"mail":      {},
	"dashboard": {},
	"status":    {},
}

// ValidateSubdomain checks that the candidate is a usable DNS label and not
// reserved. It does not consult the database.
func ValidateSubdomain(subdomain string) error {
	subdomain = strings.TrimSpace(subdomain)
	if subdomain == "" {
		return fmt.Errorf("%w: subdomain is required", ErrSubdomainInvalid)
	}
	if len(subdomain) < domain.SubdomainMinLength || len(subdomain) > domain.SubdomainMaxLength {
		return fmt.Errorf("%w: must be between %d and %d characters", ErrSubdomainInvalid, domain.SubdomainMinLength, domain.SubdomainMaxLength)
	}
	if !subdomainPattern.MatchString(subdomain) {
		return fmt.Errorf("%w: only lowercase letters, digits, and hyphens are allowed", ErrSubdomainInvalid)
	}
	if strings.HasPrefix(subdomain, "-") || strings.HasSuffix(subdomain, "-") {
		return fmt.Errorf("%w: must not start or end with a hyphen", ErrSubdomainInvalid)
	}
	if _, reserved := reservedSubdomains[subdomain]; reserved {
		return ErrSubdomainReserved
	}
	return nil
}

// ValidatePhone checks E.164 format: a plus sign, a non-zero leading digit,
// and at most fifteen digits total.
func ValidatePhone(phone string) error {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return fmt.Errorf("%w: phone number is required", ErrPhoneInvalid)
	}
	if !phonePattern.MatchString(phone) {
		return fmt.Errorf("%w: must be in E.164 format", ErrPhoneInvalid)
	}
	return nil
}

// ValidateEmail applies the basic address pattern used at registration time.
// Deliverability is proven by the confirmation email, not by this check.
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return fmt.Errorf("%w: email is required", ErrEmailInvalid)
	}
	if !emailPattern.MatchString(email) {
		return ErrEmailInvalid
	}
	return nil
}

// ValidateDraft ensures the registration metadata needed to provision a
// tenant is present and the subdomain is syntactically valid.
func ValidateDraft(draft domain.RegistrationDraft) error {
	switch {
	case strings.TrimSpace(draft.BusinessName) == "":
		return fmt.Errorf("%w: business name is required", ErrDraftIncomplete)
	case strings.TrimSpace(draft.FirstName) == "":
		return fmt.Errorf("%w: first name is required", ErrDraftIncomplete)
	case strings.TrimSpace(draft.LastName) == "":
		return fmt.Errorf("%w: last name is required", ErrDraftIncomplete)
	}
	return ValidateSubdomain(draft.Subdomain)
}
