package tasks

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/api/idtoken"
)

// ErrUnauthenticated is returned when a task callback carries no valid
// identity.
var ErrUnauthenticated = errors.New("tasks: unauthenticated callback")

// ErrForbidden is returned when a callback carries a validly signed token for
// a principal that is not on the allow-list.
var ErrForbidden = errors.New("tasks: caller not allowed")

// Verifier authenticates incoming task-callback requests. The production
// implementation validates Google-signed OIDC tokens; tests substitute fakes.
type Verifier interface {
	// Verify checks the Authorization header value and returns the caller's
	// email identity.
	Verify(ctx context.Context, authorization string) (string, error)
}

// OIDCVerifier validates Google-signed OIDC bearer tokens against an expected
// audience and an allow-list of service account emails.
type OIDCVerifier struct {
	audience      string
	allowedEmails map[string]struct{}
}

// NewOIDCVerifier builds a verifier for the given audience. allowedEmails
// lists the service accounts permitted to deliver tasks; empty means any
// validly signed token is accepted.
func NewOIDCVerifier(audience string, allowedEmails []string) *OIDCVerifier {
	allowed := make(map[string]struct{}, len(allowedEmails))
	for _, email := range allowedEmails {
		if email = strings.TrimSpace(strings.ToLower(email)); email != "" {
			allowed[email] = struct{}{}
		}
	}
	return &OIDCVerifier{audience: audience, allowedEmails: allowed}
}

// Verify implements Verifier.
func (v *OIDCVerifier) Verify(ctx context.Context, authorization string) (string, error) {
	token, ok := strings.CutPrefix(authorization, "Bearer ")
	if !ok || token == "" {
		return "", ErrUnauthenticated
	}
	payload, err := idtoken.Validate(ctx, token, v.audience)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	email, _ := payload.Claims["email"].(string)
	email = strings.ToLower(email)
	if email == "" {
		return "", fmt.Errorf("%w: token has no email claim", ErrUnauthenticated)
	}
	if len(v.allowedEmails) > 0 {
		if _, ok := v.allowedEmails[email]; !ok {
			return "", fmt.Errorf("%w: %s", ErrForbidden, email)
		}
	}
	return email, nil
}
