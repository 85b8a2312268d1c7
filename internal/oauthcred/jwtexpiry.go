package oauthcred

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// expiryFromJWT reads the exp claim off an access token without
// verifying its signature — some vendors (GLM, iFlow) issue JWT access
// tokens and omit expires_in from the token response, so the claim is
// the only expiry signal available.
func expiryFromJWT(accessToken string) (time.Time, bool) {
	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(accessToken, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}
