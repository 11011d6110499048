package ldap

import (
	"time"

	"github.com/cpp-cyber/dirauth/internal/metrics"
	"github.com/go-ldap/ldap/v3"
)

// =================================================
// LDAP Service Interface
// =================================================

type Service interface {
	// Identity
	ResolveIdentity(username string) (string, error)
	VerifyCredential(identity string, password string) error

	// Groups
	FetchGroups(identity string) []string

	// Connection Management
	HealthCheck() error
}

// =================================================
// LDAP Client
// =================================================

type Config struct {
	URL              string        `envconfig:"LDAP_URL" default:"ldap://localhost:389"`
	BaseDN           string        `envconfig:"LDAP_BASE_DN" default:"dc=example,dc=org"`
	BindUser         string        `envconfig:"LDAP_BIND_USER" required:"true"`
	BindPassword     string        `envconfig:"LDAP_BIND_PASSWORD"`
	BindPasswordFile string        `envconfig:"LDAP_BIND_PASSWORD_FILE"`
	SkipTLSVerify    bool          `envconfig:"LDAP_SKIP_TLS_VERIFY" default:"false"`
	Timeout          time.Duration `envconfig:"LDAP_TIMEOUT" default:"10s"`

	UsersOU              string `envconfig:"LDAP_USERS_OU" default:"ou=users"`
	GroupsOU             string `envconfig:"LDAP_GROUPS_OU" default:"ou=groups"`
	LoginAttribute       string `envconfig:"LDAP_LOGIN_ATTRIBUTE" default:"uid"`
	DisplayNameAttribute string `envconfig:"LDAP_DISPLAY_NAME_ATTRIBUTE" default:"cn"`
	GroupObjectClass     string `envconfig:"LDAP_GROUP_OBJECT_CLASS" default:"groupOfNames"`
	MemberAttribute      string `envconfig:"LDAP_MEMBER_ATTRIBUTE" default:"member"`
	GroupNameAttribute   string `envconfig:"LDAP_GROUP_NAME_ATTRIBUTE" default:"cn"`
}

// Conn is the subset of *ldap.Conn used for one scoped directory session.
type Conn interface {
	Bind(username, password string) error
	Search(searchRequest *ldap.SearchRequest) (*ldap.SearchResult, error)
	Unbind() error
	Close() error
}

// Dialer opens a new, unbound connection to the directory.
type Dialer func(config *Config) (Conn, error)

// Client opens one short-lived connection per directory operation. It holds
// no connection between calls and is safe for concurrent use.
type Client struct {
	config   *Config
	dial     Dialer
	recorder metrics.Recorder
}

// Directory operation names used in logs and metrics
const (
	OpResolve     = "resolve"
	OpVerify      = "verify"
	OpFetchGroups = "fetch_groups"
	OpHealth      = "health"
)
