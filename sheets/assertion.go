package sheets

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// assertionLifetime bounds how long a signed assertion is accepted by the
// token endpoint. Google caps this at one hour.
const assertionLifetime = time.Hour

// signAssertion builds the RS256-signed claim set that the token endpoint
// exchanges for an access token: issuer is the service-account identity,
// scope the requested permissions, audience the token endpoint itself. Claim
// names must match the consumed API exactly.
func signAssertion(creds *Credentials, now time.Time) (string, error) {
	claims := jwt.MapClaims{
		"iss":   creds.ClientEmail,
		"scope": creds.Scope,
		"aud":   creds.TokenURL,
		"iat":   now.Unix(),
		"exp":   now.Add(assertionLifetime).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	signed, err := token.SignedString(creds.PrivateKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign assertion: %w", err)
	}
	return signed, nil
}
