// Package testhelpers provides utilities for testing kgsync components.
package testhelpers

import (
	"encoding/base64"
	"fmt"
	"time"
)

// GenerateTestJWT creates an unsigned access token (alg: none) shaped like
// the ones the backend issues. A zero exp omits the claim.
func GenerateTestJWT(sub string, exp time.Time) string {
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"none","typ":"JWT"}`))

	payload := fmt.Sprintf(`{"sub":"%s"`, sub)
	if !exp.IsZero() {
		payload += fmt.Sprintf(`,"exp":%d`, exp.Unix())
	}
	payload += "}"

	encodedPayload := base64.RawURLEncoding.EncodeToString([]byte(payload))
	return fmt.Sprintf("%s.%s.", header, encodedPayload)
}
