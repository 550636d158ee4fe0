package privacyidea

import (
	"encoding/json"
	"fmt"

	"github.com/thomasdarimont/privacyidea-keycloak-provider/pkg/mfa"
)

// apiResponse is the envelope every privacyIDEA endpoint answers with.
type apiResponse struct {
	Result struct {
		Status bool            `json:"status"`
		Value  json.RawMessage `json:"value"`
		Error  *apiError       `json:"error"`
	} `json:"result"`
	Detail struct {
		Message        string         `json:"message"`
		TransactionID  string         `json:"transaction_id"`
		MultiChallenge []apiChallenge `json:"multi_challenge"`
		GoogleURL      struct {
			Img string `json:"img"`
		} `json:"googleurl"`
		Serial string `json:"serial"`
	} `json:"detail"`
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *apiError) Error() string {
	return fmt.Sprintf("privacyidea error %d: %s", e.Code, e.Message)
}

type apiChallenge struct {
	Type          string `json:"type"`
	Serial        string `json:"serial"`
	Message       string `json:"message"`
	TransactionID string `json:"transaction_id"`
	Attributes    struct {
		WebAuthnSignRequest json.RawMessage `json:"webAuthnSignRequest"`
	} `json:"attributes"`
}

// boolValue reads the result value as a bool; privacyIDEA also encodes it as
// an authentication object on some versions, in which case absence means false.
func (r *apiResponse) boolValue() bool {
	var v bool
	if err := json.Unmarshal(r.Result.Value, &v); err != nil {
		return false
	}
	return v
}

// challengeResult projects the API envelope onto the flow's ChallengeResult.
func (r *apiResponse) challengeResult() *mfa.ChallengeResult {
	out := &mfa.ChallengeResult{
		Success:       r.boolValue(),
		Message:       r.Detail.Message,
		TransactionID: r.Detail.TransactionID,
	}

	for _, c := range r.Detail.MultiChallenge {
		out.PendingChallenges = append(out.PendingChallenges, mfa.Challenge{
			TokenType:     c.Type,
			Serial:        c.Serial,
			Message:       c.Message,
			TransactionID: c.TransactionID,
		})
		if c.Type == mfa.TokenTypeWebAuthn && len(c.Attributes.WebAuthnSignRequest) > 0 {
			out.WebAuthnSignRequests = append(out.WebAuthnSignRequests, string(c.Attributes.WebAuthnSignRequest))
		}
	}

	return out
}
