package ldap

import (
	"errors"
	"fmt"

	"github.com/go-ldap/ldap/v3"
)

var (
	// ErrNotFound means no directory entry matched the username.
	ErrNotFound = errors.New("no matching directory entry")
	// ErrRejected means the directory judged the credential and refused it.
	ErrRejected = errors.New("directory rejected the credential")
	// ErrDirectoryUnavailable means the directory could not be reached or
	// failed before it could answer.
	ErrDirectoryUnavailable = errors.New("directory unavailable")
	// ErrInvalidInput means the call itself was malformed.
	ErrInvalidInput = errors.New("invalid input")
)

// Outcome labels shared by logs, metrics and the audit trail
const (
	OutcomeSuccess              = "success"
	OutcomeNotFound             = "not_found"
	OutcomeRejected             = "rejected"
	OutcomeDirectoryUnavailable = "directory_unavailable"
	OutcomeInvalidInput         = "invalid_input"
)

// Outcome maps an error returned by this package to its outcome label.
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, ErrNotFound):
		return OutcomeNotFound
	case errors.Is(err, ErrRejected):
		return OutcomeRejected
	case errors.Is(err, ErrInvalidInput):
		return OutcomeInvalidInput
	default:
		return OutcomeDirectoryUnavailable
	}
}

// Result codes meaning the server evaluated the bind and refused it.
// ErrorEmptyPassword is raised client-side before an unauthenticated bind
// could be sent, and counts as a refusal too.
var rejectedBindCodes = []uint16{
	ldap.LDAPResultInvalidCredentials,
	ldap.LDAPResultInappropriateAuthentication,
	ldap.LDAPResultInsufficientAccessRights,
	ldap.LDAPResultUnwillingToPerform,
	ldap.LDAPResultInvalidDNSyntax,
	ldap.ErrorEmptyPassword,
}

// classifyBindError separates a refused credential from a transport failure.
func classifyBindError(err error) error {
	if ldap.IsErrorAnyOf(err, rejectedBindCodes...) {
		return fmt.Errorf("%w: %v", ErrRejected, err)
	}
	return fmt.Errorf("%w: bind failed: %v", ErrDirectoryUnavailable, err)
}
