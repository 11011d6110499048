package ldap

import (
	"fmt"
	"log"
	"sort"
	"time"

	ldapv3 "github.com/go-ldap/ldap/v3"
)

// =================================================
// Public Functions
// =================================================

// FetchGroups returns the names of the groups listing identity as a member.
// It never fails: a directory error yields an empty set, so a lookup outage
// can only ever remove access.
func (c *Client) FetchGroups(identity string) []string {
	if identity == "" {
		log.Println("[DEBUG] FetchGroups: No identity given, returning no groups")
		return []string{}
	}

	start := time.Now()
	groups := []string{}

	err := c.withServiceConnection(func(conn Conn) error {
		req := ldapv3.NewSearchRequest(
			c.config.GroupsBaseDN(),
			ldapv3.ScopeWholeSubtree, ldapv3.NeverDerefAliases, 0, c.searchTimeLimit(), false,
			c.groupFilter(identity),
			[]string{c.config.GroupNameAttribute},
			nil,
		)

		searchResult, err := conn.Search(req)
		if err != nil {
			return fmt.Errorf("%w: failed to search for groups: %v", ErrDirectoryUnavailable, err)
		}

		groups = groupNames(searchResult.Entries, c.config.GroupNameAttribute)
		return nil
	})
	c.observe(OpFetchGroups, err, start)

	if err != nil {
		log.Printf("[ERROR] FetchGroups: Group lookup for %s failed, returning no groups: %v", identity, err)
		return []string{}
	}

	log.Printf("[DEBUG] FetchGroups: %s is a member of %d groups", identity, len(groups))
	return groups
}

// =================================================
// Private Functions
// =================================================

func (c *Client) groupFilter(identity string) string {
	return fmt.Sprintf("(&(objectClass=%s)(%s=%s))",
		ldapv3.EscapeFilter(c.config.GroupObjectClass),
		c.config.MemberAttribute, ldapv3.EscapeFilter(identity),
	)
}

// groupNames collects the distinct, non-empty names in sorted order
func groupNames(entries []*ldapv3.Entry, attribute string) []string {
	seen := make(map[string]struct{}, len(entries))
	names := make([]string, 0, len(entries))

	for _, entry := range entries {
		name := entry.GetAttributeValue(attribute)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}

	sort.Strings(names)
	return names
}
