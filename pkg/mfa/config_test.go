package mfa

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseConfigDefaults(t *testing.T) {
	cfg := ParseConfig(map[string]string{})

	assert.False(t, cfg.TriggerChallenge)
	assert.False(t, cfg.SendPassword)
	assert.False(t, cfg.EnrollToken)
	assert.False(t, cfg.DoLog)
	assert.Equal(t, TokenTypeOTP, cfg.PreferredTokenType)
	assert.Empty(t, cfg.ExcludedGroups)
	assert.Equal(t, DefaultPollingIntervals, cfg.PollingIntervals)
}

func TestParseConfig(t *testing.T) {
	cfg := ParseConfig(map[string]string{
		ConfigServer:           "https://pi.example.com",
		ConfigRealm:            "corp",
		ConfigVerifySSL:        "true",
		ConfigTriggerChallenge: "true",
		ConfigSendPassword:     "true",
		ConfigServiceAccount:   "service",
		ConfigServicePass:      "secret",
		ConfigServiceRealm:     "admin",
		ConfigExcludedGroups:   "admins,service-accounts",
		ConfigEnrollToken:      "true",
		ConfigEnrollTokenType:  "TOTP",
		ConfigPrefTokenType:    "PUSH",
		ConfigPushInterval:     "1,2,5,10",
		ConfigDoLog:            "true",
	})

	assert.Equal(t, "https://pi.example.com", cfg.ServerURL)
	assert.Equal(t, "corp", cfg.Realm)
	assert.True(t, cfg.VerifySSL)
	assert.True(t, cfg.TriggerChallenge)
	assert.True(t, cfg.SendPassword)
	assert.Equal(t, []string{"admins", "service-accounts"}, cfg.ExcludedGroups)
	// Token types are lowercased to match privacyIDEA.
	assert.Equal(t, "totp", cfg.EnrollingTokenType)
	assert.Equal(t, "push", cfg.PreferredTokenType)
	assert.Equal(t, []int{1, 2, 5, 10}, cfg.PollingIntervals)
	assert.True(t, cfg.DoLog)
}

func TestParsePollingIntervals(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  []int
	}{
		{"absent uses defaults", "", DefaultPollingIntervals},
		{"well formed", "1,2,5", []int{1, 2, 5}},
		{"malformed entry substituted", "1,abc,5", []int{1, DefaultPollingInterval, 5}},
		{"all malformed", "x,y", []int{DefaultPollingInterval, DefaultPollingInterval}},
		{"whitespace tolerated", " 2 , 4 ", []int{2, 4}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parsePollingIntervals(tt.value)
			assert.Equal(t, tt.want, got)
			assert.NotEmpty(t, got)
		})
	}
}

func TestIsGroupExcluded(t *testing.T) {
	cfg := Config{ExcludedGroups: []string{"admins", "bots"}}

	assert.True(t, cfg.IsGroupExcluded([]string{"users", "admins"}))
	assert.False(t, cfg.IsGroupExcluded([]string{"users"}))
	assert.False(t, cfg.IsGroupExcluded(nil))
}
