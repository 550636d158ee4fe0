// Package mfa implements the privacyIDEA multi-factor challenge-response flow
// that runs between the primary credential check and final login success.
//
// # Overview
//
// For an authenticated-but-not-yet-verified user the package decides which
// second factor to challenge (OTP, push notification or WebAuthn), drives the
// two-phase exchange with the privacyIDEA backend and tracks per-attempt
// progress across HTTP round trips:
//
//   - Initiate runs once after the primary factor succeeds. It skips the
//     second factor for excluded groups, triggers the first challenge
//     (service-account trigger has precedence over password forwarding),
//     optionally auto-enrolls a token and produces the first form render
//     state.
//   - Evaluate runs on every form submission. It polls and finalizes push
//     challenges, verifies WebAuthn sign responses and OTP values, interprets
//     the backend result and computes the next poll interval.
//
// Both phases are stateless; the attempt state (transaction id, captured
// Accept-Language, auth counter) lives in a NoteStore the caller persists
// between round trips. Polling is cooperative: the re-rendered form resubmits
// after the advertised interval, the package itself never sleeps or blocks.
//
// # Basic Usage
//
//	cfg := mfa.ParseConfig(authenticatorConfig)
//	flow := mfa.NewFlowService(privacyidea.NewClient(cfg))
//
//	// After the primary factor succeeded:
//	decision, err := flow.Initiate(ctx, cfg, user, password, acceptLanguage, notes)
//
//	// On every form submission:
//	decision, err := flow.Evaluate(ctx, cfg, username, form, notes)
//
// A Decision is either terminal (succeeded, cancelled) or pending with the
// RenderState for the next form.
package mfa
