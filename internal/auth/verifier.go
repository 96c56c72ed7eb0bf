package auth

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jws"
	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/noah-isme/pos-gateway/internal/common"
)

// Verifier validates gateway access tokens issued by the backend auth
// service. Tokens carry the terminal user in the subject and the POS role in
// a "role" claim.
type Verifier struct {
	Secret    []byte
	Issuer    string
	Audience  string
	ClockSkew time.Duration
	Algorithm jwa.SignatureAlgorithm
	Now       func() time.Time
}

func (v Verifier) now() time.Time {
	if v.Now != nil {
		return v.Now()
	}
	return time.Now()
}

func (v Verifier) algorithm() jwa.SignatureAlgorithm {
	if v.Algorithm != "" {
		return v.Algorithm
	}
	return jwa.HS256
}

// Verify parses and validates a raw token and returns the principal it
// carries.
func (v Verifier) Verify(raw string) (common.Principal, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return common.Principal{}, common.NewAppError(common.CodeUnauthorized, "missing token", http.StatusUnauthorized, nil)
	}

	algorithm, err := tokenAlgorithm(trimmed)
	if err != nil {
		return common.Principal{}, common.NewAppError(common.CodeUnauthorized, "invalid token", http.StatusUnauthorized, err)
	}
	if algorithm != v.algorithm() {
		return common.Principal{}, common.NewAppError(common.CodeUnauthorized, "invalid token", http.StatusUnauthorized,
			fmt.Errorf("unexpected token algorithm %s", algorithm))
	}

	tok, err := jwt.ParseString(trimmed, jwt.WithKey(algorithm, v.Secret))
	if err != nil {
		return common.Principal{}, common.NewAppError(common.CodeUnauthorized, "invalid token", http.StatusUnauthorized, err)
	}

	options := []jwt.ValidateOption{
		jwt.WithClock(jwt.ClockFunc(v.now)),
	}
	if v.ClockSkew > 0 {
		options = append(options, jwt.WithAcceptableSkew(v.ClockSkew))
	}
	if v.Issuer != "" {
		options = append(options, jwt.WithIssuer(v.Issuer))
	}
	if v.Audience != "" {
		options = append(options, jwt.WithAudience(v.Audience))
	}
	if err := jwt.Validate(tok, options...); err != nil {
		return common.Principal{}, common.NewAppError(common.CodeUnauthorized, "invalid token", http.StatusUnauthorized, err)
	}

	p := common.Principal{UserID: tok.Subject()}
	if raw, ok := tok.Get("role"); ok {
		if role, ok := raw.(string); ok {
			p.Role = role
		}
	}
	if p.UserID == "" {
		return common.Principal{}, common.NewAppError(common.CodeUnauthorized, "invalid token", http.StatusUnauthorized,
			fmt.Errorf("token missing subject"))
	}
	return p, nil
}

func tokenAlgorithm(token string) (jwa.SignatureAlgorithm, error) {
	message, err := jws.ParseString(token)
	if err != nil {
		return "", err
	}
	signatures := message.Signatures()
	if len(signatures) == 0 {
		return "", fmt.Errorf("token has no signatures")
	}
	headers := signatures[0].ProtectedHeaders()
	if headers == nil {
		return "", fmt.Errorf("token missing protected headers")
	}
	return headers.Algorithm(), nil
}
