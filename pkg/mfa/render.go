package mfa

import "strings"

// RenderState carries the attributes the second-factor form is rendered from.
// It is a pure projection of session state and the last backend result,
// rebuilt on every render.
type RenderState struct {
	// PollInterval is the advertised delay in seconds before the form
	// resubmits itself.
	PollInterval int `json:"poll_interval"`

	// EnrollmentQR is the QR payload of a freshly enrolled token, empty when
	// no enrollment happened.
	EnrollmentQR string `json:"token_enrollment_qr"`

	// Mode is the second-factor mechanism currently presented: otp, push or
	// webauthn.
	Mode string `json:"mode"`

	PushAvailable bool `json:"push_available"`
	OTPAvailable  bool `json:"otp_available"`

	PushMessage string `json:"push_message"`
	OTPMessage  string `json:"otp_message"`

	// WebAuthnSignRequest is the raw sign request payload for the WebAuthn
	// mode, empty when no WebAuthn challenge is pending.
	WebAuthnSignRequest string `json:"webauthn_sign_request"`

	// UILanguage is the resolved form locale, en or de.
	UILanguage string `json:"ui_language"`

	// Error is the status or failure banner, empty when none is shown.
	Error string `json:"error,omitempty"`
}

// Form holds the named fields of one second-factor form submission.
type Form struct {
	// Cancel aborts the whole authentication attempt.
	Cancel bool `json:"cancel"`

	// Mode is the mechanism the form was in when it was submitted.
	Mode string `json:"mode"`

	PushAvailable bool   `json:"push_available"`
	OTPAvailable  bool   `json:"otp_available"`
	PushMessage   string `json:"push_message"`
	OTPMessage    string `json:"otp_message"`

	// ModeChanged is set when the user switched the token type without
	// submitting a credential.
	ModeChanged bool `json:"mode_changed"`

	// OTP is the submitted credential value.
	OTP string `json:"otp"`

	WebAuthnSignRequest  string `json:"webauthn_sign_request"`
	WebAuthnSignResponse string `json:"webauthn_sign_response"`
	WebAuthnOrigin       string `json:"webauthn_origin"`

	// EnrollmentQR echoes the enrollment QR payload rendered before.
	EnrollmentQR string `json:"token_enrollment_qr"`

	UILanguage string `json:"ui_language"`
}

// uiLanguage derives the form locale from the Accept-Language header value.
// The choice is two-way only: de when the header starts with "de", en
// otherwise.
func uiLanguage(acceptLanguage string) string {
	if strings.HasPrefix(strings.ToLower(acceptLanguage), "de") {
		return "de"
	}
	return "en"
}

// defaultMessages returns the default push and OTP prompt texts for the given
// UI language.
func defaultMessages(lang string) (pushMessage, otpMessage string) {
	if lang == "de" {
		return DefaultPushMessageDE, DefaultOTPMessageDE
	}
	return DefaultPushMessageEN, DefaultOTPMessageEN
}
