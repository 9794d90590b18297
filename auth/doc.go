// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package auth maps shared join tokens to session roles.

There is no account system: whoever presents the user token joins as a
participant, the lead token as a lead, the admin token as an admin. Token
comparison is constant-time via hmac.Equal.
*/
package auth
