package ldap

import (
	"errors"
	"strings"
	"sync"
	"time"

	ldapv3 "github.com/go-ldap/ldap/v3"
)

type fakeUser struct {
	dn       string
	uid      string
	cn       string
	password string
}

type fakeGroup struct {
	cn      string
	members []string
}

// fakeDirectory is an in-memory directory reachable through Client.dial. It
// matches filters by substring, which is enough for the filters this package
// builds.
type fakeDirectory struct {
	config *Config

	mu        sync.Mutex
	users     []fakeUser
	groups    []fakeGroup
	dialErr   error
	searchErr error
	bindErr   error

	dials     int
	open      int
	userBinds []string
	requests  []*ldapv3.SearchRequest
}

func testConfig() *Config {
	return &Config{
		URL:                  "ldap://directory.test:389",
		BaseDN:               "dc=example,dc=org",
		BindUser:             "cn=admin,dc=example,dc=org",
		BindPassword:         "admin-secret",
		Timeout:              5 * time.Second,
		UsersOU:              "ou=users",
		GroupsOU:             "ou=groups",
		LoginAttribute:       "uid",
		DisplayNameAttribute: "cn",
		GroupObjectClass:     "groupOfNames",
		MemberAttribute:      "member",
		GroupNameAttribute:   "cn",
	}
}

const (
	aliceDN = "cn=Alice,ou=users,dc=example,dc=org"
	carolDN = "cn=Carol,ou=users,dc=example,dc=org"
)

func newFakeDirectory(config *Config) *fakeDirectory {
	return &fakeDirectory{
		config: config,
		users: []fakeUser{
			{dn: aliceDN, uid: "alice", cn: "Alice", password: "wonderland"},
			{dn: carolDN, uid: "carol", cn: "Carol", password: "c4rol"},
		},
		groups: []fakeGroup{
			{cn: "GroupA", members: []string{aliceDN}},
			{cn: "Staff", members: []string{aliceDN, carolDN}},
		},
	}
}

func newTestClient() (*Client, *fakeDirectory) {
	config := testConfig()
	dir := newFakeDirectory(config)
	client := NewClient(config, nil)
	client.dial = dir.dial
	return client, dir
}

func (d *fakeDirectory) dial(config *Config) (Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.dials++
	if d.dialErr != nil {
		return nil, d.dialErr
	}
	d.open++
	return &fakeConn{dir: d}, nil
}

func (d *fakeDirectory) openConnections() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.open
}

func (d *fakeDirectory) userBindCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.userBinds)
}

type fakeConn struct {
	dir    *fakeDirectory
	closed bool
}

func (c *fakeConn) Bind(username, password string) error {
	d := c.dir
	d.mu.Lock()
	defer d.mu.Unlock()

	if username != d.config.BindUser {
		d.userBinds = append(d.userBinds, username)
	}
	if d.bindErr != nil {
		return d.bindErr
	}
	if password == "" {
		return ldapv3.NewError(ldapv3.ErrorEmptyPassword, errors.New("ldap: empty password not allowed by the client"))
	}
	if username == d.config.BindUser && password == d.config.BindPassword {
		return nil
	}
	for _, u := range d.users {
		if u.dn == username && u.password == password {
			return nil
		}
	}
	return ldapv3.NewError(ldapv3.LDAPResultInvalidCredentials, errors.New("invalid credentials"))
}

func (c *fakeConn) Search(req *ldapv3.SearchRequest) (*ldapv3.SearchResult, error) {
	d := c.dir
	d.mu.Lock()
	defer d.mu.Unlock()

	d.requests = append(d.requests, req)
	if d.searchErr != nil {
		return nil, d.searchErr
	}

	result := &ldapv3.SearchResult{}
	switch req.BaseDN {
	case d.config.UsersBaseDN():
		for _, u := range d.users {
			if strings.Contains(req.Filter, "(uid="+u.uid+")") || strings.Contains(req.Filter, "(cn="+u.cn+")") {
				result.Entries = append(result.Entries, ldapv3.NewEntry(u.dn, map[string][]string{"cn": {u.cn}}))
			}
		}
	case d.config.GroupsBaseDN():
		for _, g := range d.groups {
			for _, member := range g.members {
				if strings.Contains(req.Filter, "(member="+member+")") {
					result.Entries = append(result.Entries, ldapv3.NewEntry("cn="+g.cn+",ou=groups,dc=example,dc=org", map[string][]string{"cn": {g.cn}}))
				}
			}
		}
	case d.config.BaseDN:
		result.Entries = append(result.Entries, ldapv3.NewEntry(d.config.BaseDN, nil))
	}
	return result, nil
}

func (c *fakeConn) Unbind() error {
	return c.Close()
}

func (c *fakeConn) Close() error {
	d := c.dir
	d.mu.Lock()
	defer d.mu.Unlock()

	if !c.closed {
		c.closed = true
		d.open--
	}
	return nil
}
