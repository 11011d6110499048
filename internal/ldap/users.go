package ldap

import (
	"fmt"
	"log"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	ldapv3 "github.com/go-ldap/ldap/v3"
)

// Ensure Client implements Service interface at compile time
var _ Service = (*Client)(nil)

// =================================================
// Public Functions
// =================================================

// ResolveIdentity finds the DN of the entry whose login attribute matches the
// lowercased username, or whose display name matches it as typed or
// capitalized. The first matching entry wins.
func (c *Client) ResolveIdentity(username string) (string, error) {
	if strings.TrimSpace(username) == "" {
		return "", fmt.Errorf("%w: username cannot be empty", ErrInvalidInput)
	}

	start := time.Now()
	var userDN string

	err := c.withServiceConnection(func(conn Conn) error {
		req := ldapv3.NewSearchRequest(
			c.config.UsersBaseDN(),
			ldapv3.ScopeWholeSubtree, ldapv3.NeverDerefAliases, 0, c.searchTimeLimit(), false,
			c.userFilter(username),
			[]string{c.config.DisplayNameAttribute},
			nil,
		)

		searchResult, err := conn.Search(req)
		if err != nil {
			return fmt.Errorf("%w: failed to search for user: %v", ErrDirectoryUnavailable, err)
		}

		if len(searchResult.Entries) == 0 {
			return fmt.Errorf("%w: user %s", ErrNotFound, username)
		}
		if len(searchResult.Entries) > 1 {
			log.Printf("[WARN] ResolveIdentity: %d entries match %s, using %s",
				len(searchResult.Entries), username, searchResult.Entries[0].DN)
		}

		userDN = searchResult.Entries[0].DN
		return nil
	})
	c.observe(OpResolve, err, start)

	if err != nil {
		return "", err
	}
	log.Printf("[DEBUG] ResolveIdentity: Resolved %s to %s", username, userDN)
	return userDN, nil
}

// VerifyCredential binds as identity with password. The connection proves the
// credential and is released straight away.
func (c *Client) VerifyCredential(identity string, password string) error {
	if identity == "" {
		return fmt.Errorf("%w: identity must be resolved before verification", ErrInvalidInput)
	}

	start := time.Now()
	conn, err := c.open(identity, password)
	if err == nil {
		c.release(conn)
	}
	c.observe(OpVerify, err, start)

	if err != nil {
		log.Printf("[DEBUG] VerifyCredential: Bind as %s failed: %v", identity, err)
		return err
	}
	log.Printf("[DEBUG] VerifyCredential: Bind as %s successful", identity)
	return nil
}

// =================================================
// Private Functions
// =================================================

func (c *Client) userFilter(username string) string {
	return fmt.Sprintf("(|(%s=%s)(%s=%s)(%s=%s))",
		c.config.LoginAttribute, ldapv3.EscapeFilter(strings.ToLower(username)),
		c.config.DisplayNameAttribute, ldapv3.EscapeFilter(username),
		c.config.DisplayNameAttribute, ldapv3.EscapeFilter(capitalize(username)),
	)
}

// capitalize upper-cases the first rune and lower-cases the rest
func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if size == 0 {
		return s
	}
	return string(unicode.ToUpper(r)) + strings.ToLower(s[size:])
}
