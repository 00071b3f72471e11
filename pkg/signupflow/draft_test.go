package signupflow

import "testing"

func validDraft() Draft {
	return Draft{
		BusinessName: "Sparkle Wash",
		Subdomain:    "sparkle-wash",
		FirstName:    "Dana",
		LastName:     "Reyes",
	}
}

func validEmailTrack() EmailTrack {
	return EmailTrack{
		Email:           "dana@example.com",
		Password:        "correct-horse",
		ConfirmPassword: "correct-horse",
	}
}

func TestValidateEmailTrackRejectsMalformedEmails(t *testing.T) {
	for _, email := range []string{"", "dana", "dana@", "@example.com", "dana example.com", "dana@example"} {
		track := validEmailTrack()
		track.Email = email
		errs := Validate(validDraft(), track)
		if errs.Valid() {
			t.Errorf("email %q: expected invalid", email)
		}
		if msg, ok := errs[FieldEmail]; !ok || msg == "" {
			t.Errorf("email %q: expected an error on the email field, got %v", email, errs)
		}
	}
}

func TestValidateEmailTrackPasswordRules(t *testing.T) {
	track := validEmailTrack()
	track.Password = "short7!"
	track.ConfirmPassword = "short7!"
	errs := Validate(validDraft(), track)
	if _, ok := errs[FieldPassword]; !ok {
		t.Fatalf("expected short password rejected, got %v", errs)
	}

	track = validEmailTrack()
	track.ConfirmPassword = "different-pass"
	errs = Validate(validDraft(), track)
	if _, ok := errs[FieldConfirmPassword]; !ok {
		t.Fatalf("expected confirm mismatch rejected, got %v", errs)
	}
}

func TestValidateRejectsBadSubdomains(t *testing.T) {
	for _, sub := range []string{"Sparkle", "sparkle wash", "sparkle_wash", "sparkle.wash", "spärkle", ""} {
		d := validDraft()
		d.Subdomain = sub
		errs := Validate(d, validEmailTrack())
		if _, ok := errs[FieldSubdomain]; !ok {
			t.Errorf("subdomain %q: expected rejection, got %v", sub, errs)
		}
	}
}

func TestValidatePhoneTrackRejectsBadNumbers(t *testing.T) {
	for _, phone := range []string{"", "15551234567", "+05551234567", "+1555-123-4567", "+", "+1234567890123456"} {
		errs := Validate(validDraft(), PhoneTrack{PhoneNumber: phone})
		if _, ok := errs[FieldPhoneNumber]; !ok {
			t.Errorf("phone %q: expected rejection, got %v", phone, errs)
		}
	}
}

func TestValidatePhoneTrackCodeRequiredOnlyAfterSend(t *testing.T) {
	errs := Validate(validDraft(), PhoneTrack{PhoneNumber: "+15551234567"})
	if !errs.Valid() {
		t.Fatalf("code should not be required before it is sent, got %v", errs)
	}

	errs = Validate(validDraft(), PhoneTrack{PhoneNumber: "+15551234567", CodeSent: true})
	if _, ok := errs[FieldVerificationCode]; !ok {
		t.Fatalf("expected code required once sent, got %v", errs)
	}
}

func TestValidateRecomputesWholeMap(t *testing.T) {
	d := validDraft()
	d.BusinessName = ""
	first := Validate(d, validEmailTrack())
	if _, ok := first[FieldBusinessName]; !ok {
		t.Fatalf("expected business name error, got %v", first)
	}

	d.BusinessName = "Sparkle Wash"
	second := Validate(d, validEmailTrack())
	if !second.Valid() {
		t.Fatalf("fixed field should clear its error, got %v", second)
	}
}
