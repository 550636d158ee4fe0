package mfa

import (
	"strconv"
	"strings"
)

// Config holds the authenticator configuration for one authentication attempt.
// It is an immutable value: parse it once per attempt and pass it to both the
// initiate and evaluate phases.
type Config struct {
	// ServerURL is the base URL of the privacyIDEA server.
	ServerURL string

	// Realm is the privacyIDEA realm the users belong to.
	Realm string

	// VerifySSL controls TLS certificate verification for backend calls.
	VerifySSL bool

	// TriggerChallenge proactively triggers challenges for the user via the
	// service account. Takes precedence over SendPassword.
	TriggerChallenge bool

	// SendPassword forwards the password from the primary credential check to
	// the backend as the first factor. Only consulted when TriggerChallenge is
	// disabled.
	SendPassword bool

	ServiceAccount  string
	ServicePassword string
	ServiceRealm    string

	// ExcludedGroups lists group names exempt from the second factor.
	ExcludedGroups []string

	// EnrollToken requests enrollment of EnrollingTokenType when the user has
	// no token yet and nothing else is already in progress.
	EnrollToken        bool
	EnrollingTokenType string

	// PreferredTokenType becomes the default form mode when the backend
	// triggered a challenge of this type.
	PreferredTokenType string

	// PollingIntervals is the escalating schedule of seconds between poll
	// attempts for push challenges, indexed by the attempt's auth counter.
	// Never empty.
	PollingIntervals []int

	// DoLog enables diagnostic logging.
	DoLog bool
}

// ParseConfig builds a Config from the flat key-value map the authenticator is
// configured with. Missing keys fall back to defaults, malformed polling
// interval entries are substituted with DefaultPollingInterval, so parsing
// never fails.
func ParseConfig(m map[string]string) Config {
	cfg := Config{
		ServerURL:          m[ConfigServer],
		Realm:              m[ConfigRealm],
		VerifySSL:          m[ConfigVerifySSL] == "true",
		TriggerChallenge:   m[ConfigTriggerChallenge] == "true",
		SendPassword:       m[ConfigSendPassword] == "true",
		ServiceAccount:     m[ConfigServiceAccount],
		ServicePassword:    m[ConfigServicePass],
		ServiceRealm:       m[ConfigServiceRealm],
		EnrollToken:        m[ConfigEnrollToken] == "true",
		EnrollingTokenType: strings.ToLower(m[ConfigEnrollTokenType]),
		PreferredTokenType: TokenTypeOTP,
		DoLog:              m[ConfigDoLog] == "true",
	}

	if pref := m[ConfigPrefTokenType]; pref != "" {
		cfg.PreferredTokenType = strings.ToLower(pref)
	}

	if groups := m[ConfigExcludedGroups]; groups != "" {
		cfg.ExcludedGroups = strings.Split(groups, ",")
	}

	cfg.PollingIntervals = parsePollingIntervals(m[ConfigPushInterval])

	return cfg
}

// parsePollingIntervals parses a comma-separated list of seconds. An entry
// that does not parse as an integer is replaced with DefaultPollingInterval;
// an absent value yields DefaultPollingIntervals. The result is never empty.
func parsePollingIntervals(s string) []int {
	if s == "" {
		out := make([]int, len(DefaultPollingIntervals))
		copy(out, DefaultPollingIntervals)
		return out
	}

	var intervals []int
	for _, entry := range strings.Split(s, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(entry))
		if err != nil {
			n = DefaultPollingInterval
		}
		intervals = append(intervals, n)
	}
	return intervals
}

// IsGroupExcluded reports whether any of the given group names is configured
// as exempt from the second factor.
func (c Config) IsGroupExcluded(groups []string) bool {
	for _, g := range groups {
		for _, excluded := range c.ExcludedGroups {
			if g == excluded {
				return true
			}
		}
	}
	return false
}
