// Package signupflow orchestrates the Washlytics tenant sign-up flow:
// field validation, subdomain availability, the phone verification code
// exchange, and tenant provisioning against the onboarding API.
package signupflow

import (
	"regexp"
	"strings"
)

// Field names used as keys in FieldErrors.
const (
	FieldBusinessName     = "businessName"
	FieldSubdomain        = "subdomain"
	FieldFirstName        = "firstName"
	FieldLastName         = "lastName"
	FieldEmail            = "email"
	FieldPassword         = "password"
	FieldConfirmPassword  = "confirmPassword"
	FieldPhoneNumber      = "phoneNumber"
	FieldVerificationCode = "verificationCode"
)

const minPasswordLength = 8

var (
	subdomainPattern = regexp.MustCompile(`^[a-z0-9-]+$`)
	phonePattern     = regexp.MustCompile(`^\+[1-9]\d{1,14}$`)
	emailPattern     = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
)

// Draft holds the registration fields shared by both sign-up tracks.
type Draft struct {
	BusinessName string
	Subdomain    string
	FirstName    string
	LastName     string
}

// Track is the sign-up channel: either EmailTrack or PhoneTrack.
type Track interface {
	track()
}

// EmailTrack carries the credentials for email-and-password sign-up.
type EmailTrack struct {
	Email           string
	Password        string
	ConfirmPassword string
}

func (EmailTrack) track() {}

// PhoneTrack carries the phone sign-up fields. VerificationCode is only
// required once CodeSent is true.
type PhoneTrack struct {
	PhoneNumber      string
	VerificationCode string
	CodeSent         bool
}

func (PhoneTrack) track() {}

// FieldErrors maps a field name to a human-readable message. Validate
// returns a fresh map on every pass so errors for corrected fields never
// linger.
type FieldErrors map[string]string

// Valid reports whether the map carries no errors.
func (fe FieldErrors) Valid() bool {
	return len(fe) == 0
}

// Validate checks the draft plus the track-specific fields and returns the
// complete error map for the attempt.
func Validate(d Draft, track Track) FieldErrors {
	errs := FieldErrors{}

	if strings.TrimSpace(d.BusinessName) == "" {
		errs[FieldBusinessName] = "Business name is required"
	}
	if strings.TrimSpace(d.FirstName) == "" {
		errs[FieldFirstName] = "First name is required"
	}
	if strings.TrimSpace(d.LastName) == "" {
		errs[FieldLastName] = "Last name is required"
	}
	switch {
	case strings.TrimSpace(d.Subdomain) == "":
		errs[FieldSubdomain] = "Subdomain is required"
	case !subdomainPattern.MatchString(d.Subdomain):
		errs[FieldSubdomain] = "Subdomain may only contain lowercase letters, numbers, and hyphens"
	}

	switch t := track.(type) {
	case EmailTrack:
		validateEmailTrack(t, errs)
	case PhoneTrack:
		validatePhoneTrack(t, errs)
	}
	return errs
}

func validateEmailTrack(t EmailTrack, errs FieldErrors) {
	switch {
	case strings.TrimSpace(t.Email) == "":
		errs[FieldEmail] = "Email is required"
	case !emailPattern.MatchString(t.Email):
		errs[FieldEmail] = "Enter a valid email address"
	}
	switch {
	case t.Password == "":
		errs[FieldPassword] = "Password is required"
	case len(t.Password) < minPasswordLength:
		errs[FieldPassword] = "Password must be at least 8 characters"
	}
	if t.ConfirmPassword != t.Password {
		errs[FieldConfirmPassword] = "Passwords do not match"
	}
}

func validatePhoneTrack(t PhoneTrack, errs FieldErrors) {
	switch {
	case strings.TrimSpace(t.PhoneNumber) == "":
		errs[FieldPhoneNumber] = "Phone number is required"
	case !phonePattern.MatchString(t.PhoneNumber):
		errs[FieldPhoneNumber] = "Enter a phone number in international format, e.g. +15551234567"
	}
	if t.CodeSent && strings.TrimSpace(t.VerificationCode) == "" {
		errs[FieldVerificationCode] = "Verification code is required"
	}
}
