// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// CheckMondayToken rejects tokens that cannot possibly work before any
// cycle work starts. Monday API tokens are JWTs signed by Monday; we
// cannot verify the signature, but a token that does not parse or whose
// exp claim is in the past is guaranteed to fail every call of the cycle.
func CheckMondayToken(token string) error {
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return fmt.Errorf("token is not a valid JWT: %w", err)
	}

	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil {
		return fmt.Errorf("token has a malformed exp claim: %w", err)
	}
	if exp != nil && exp.Before(time.Now()) {
		return fmt.Errorf("token expired at %s", exp.Format(time.RFC3339))
	}
	return nil
}
