package domain

import "time"

// VerificationPurpose distinguishes why a verification code was issued.
type VerificationPurpose string

const (
	// VerificationPurposeSignup covers phone-track tenant registration.
	VerificationPurposeSignup VerificationPurpose = "signup"
	// VerificationPurposeSignin covers returning users signing in by phone.
	VerificationPurposeSignin VerificationPurpose = "signin"
	// VerificationPurposeEmail covers email confirmation for email-track registration.
	VerificationPurposeEmail VerificationPurpose = "email"
)

// RegistrationDraft carries the registration metadata echoed through the
// verification exchange. It is stored alongside the code so no server-side
// session is required between send and verify.
type RegistrationDraft struct {
	BusinessName string
	Subdomain    string
	FirstName    string
	LastName     string
}

// Empty reports whether the draft carries no registration data, which is the
// case for sign-in verifications.
func (d RegistrationDraft) Empty() bool {
	return d.BusinessName == "" && d.Subdomain == "" && d.FirstName == "" && d.LastName == ""
}

// ContactVerification is the transient record backing an outstanding
// verification code for a phone number or email address. It lives only in the
// verification store and expires with its TTL.
type ContactVerification struct {
	Contact   string
	CodeHash  string
	Purpose   VerificationPurpose
	Draft     RegistrationDraft
	Attempts  int
	Verified  bool
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Expired reports whether the code is past its expiry at the given instant.
func (v ContactVerification) Expired(now time.Time) bool {
	return now.After(v.ExpiresAt)
}
