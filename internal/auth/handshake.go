package auth

import (
	"errors"
	"fmt"
)

// The WebSocket handshake contract between the widget and the gateway.
//
// Browsers cannot attach an Authorization header to a WebSocket upgrade, so
// the access token travels in Sec-WebSocket-Protocol. The client offers
// exactly two values, in order:
//
//	Sec-WebSocket-Protocol: jwt-bearer, <access token>
//
// The gateway verifies the token before upgrading and answers 401 when it is
// missing, malformed or expired. On success it selects jwt-bearer and nothing
// else; the token is never echoed back. A client whose connection does not
// report jwt-bearer as the negotiated subprotocol must treat the handshake as
// failed and close the connection.
const BearerSubprotocol = "jwt-bearer"

var ErrHandshake = errors.New("auth: invalid websocket handshake")

func Subprotocols(token string) []string {
	return []string{BearerSubprotocol, token}
}

func TokenFromSubprotocols(protocols []string) (string, error) {
	if len(protocols) != 2 {
		return "", fmt.Errorf("%w: expected 2 subprotocols, got %d", ErrHandshake, len(protocols))
	}
	if protocols[0] != BearerSubprotocol {
		return "", fmt.Errorf("%w: first subprotocol must be %s", ErrHandshake, BearerSubprotocol)
	}
	if !ValidSubprotocolToken(protocols[1]) {
		return "", fmt.Errorf("%w: token is not a valid subprotocol value", ErrHandshake)
	}
	return protocols[1], nil
}

// ValidSubprotocolToken reports whether s can be carried as a
// Sec-WebSocket-Protocol value (an RFC 7230 token). JWTs always are.
func ValidSubprotocolToken(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isTokenChar(s[i]) {
			return false
		}
	}
	return true
}

func isTokenChar(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	}
	switch c {
	case '!', '#', '$', '%', '&', '\'', '*', '+', '-', '.', '^', '_', '`', '|', '~':
		return true
	}
	return false
}
