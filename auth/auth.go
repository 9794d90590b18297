// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package auth

import (
	"crypto/hmac"
	"errors"

	"pokerbot/models"
)

var ErrUnknownToken = errors.New("unknown join token")

// Tokens holds the shared join secrets, one per role. A user presents one of
// these when joining a session; the matching token decides the role.
type Tokens struct {
	User  string
	Lead  string
	Admin string
}

// RoleFor maps a presented join token to a role. Comparison is
// constant-time; an unrecognized or empty token yields ErrUnknownToken.
func (t Tokens) RoleFor(token string) (models.Role, error) {
	if token == "" {
		return "", ErrUnknownToken
	}
	switch {
	case equal(token, t.User):
		return models.RoleParticipant, nil
	case equal(token, t.Lead):
		return models.RoleLead, nil
	case equal(token, t.Admin):
		return models.RoleAdmin, nil
	}
	return "", ErrUnknownToken
}

func equal(a, b string) bool {
	return b != "" && hmac.Equal([]byte(a), []byte(b))
}
