package mfa

// Token type tags as reported by privacyIDEA. privacyIDEA uses all lowercase
// letters for token types, so configured values are lowercased to match.
const (
	TokenTypeOTP      = "otp"
	TokenTypePush     = "push"
	TokenTypeWebAuthn = "webauthn"
)

// Configuration map keys. These match the flat key-value config the
// authenticator is provisioned with.
const (
	ConfigServer           = "piserver"
	ConfigRealm            = "pirealm"
	ConfigVerifySSL        = "piverifyssl"
	ConfigTriggerChallenge = "pidotriggerchallenge"
	ConfigServiceAccount   = "piserviceaccount"
	ConfigServicePass      = "piservicepass"
	ConfigServiceRealm     = "piservicerealm"
	ConfigExcludedGroups   = "piexcludegroups"
	ConfigSendPassword     = "pisendpassword"
	ConfigEnrollToken      = "pienrolltoken"
	ConfigEnrollTokenType  = "pienrolltokentype"
	ConfigPushInterval     = "pipushtokeninterval"
	ConfigPrefTokenType    = "preftokentype"
	ConfigDoLog            = "pidolog"
)

// Default prompt texts. The UI language is a two-way choice, en or de.
const (
	DefaultOTPMessageEN  = "Please enter your One-Time-Password!"
	DefaultOTPMessageDE  = "Bitte geben Sie Ihr Einmalpasswort ein!"
	DefaultPushMessageEN = "Please confirm the authentication on your mobile device!"
	DefaultPushMessageDE = "Bitte bestätigen Sie die Authentifizierung auf ihrem Smartphone!"
)

// Failure texts shown on the re-rendered form.
const (
	FailureMessage     = "Authentication failed."
	NotVerifiedMessage = "Authentication not verified yet."
)

// DefaultPollingInterval is substituted for every configured interval entry
// that does not parse as an integer.
const DefaultPollingInterval = 2

// DefaultPollingIntervals is used when no polling intervals are configured.
// Values are seconds between poll attempts.
var DefaultPollingIntervals = []int{4, 2, 2, 2, 3}
