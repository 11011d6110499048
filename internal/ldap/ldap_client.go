package ldap

import (
	"crypto/tls"
	"errors"
	"fmt"
	"log"
	"net"
	"os"
	"strings"
	"time"

	"github.com/cpp-cyber/dirauth/internal/metrics"
	"github.com/go-ldap/ldap/v3"
	"github.com/kelseyhightower/envconfig"
)

// NewClient creates a new LDAP client. A nil recorder disables metrics.
func NewClient(config *Config, recorder metrics.Recorder) *Client {
	if recorder == nil {
		recorder = metrics.NewNoopMetrics()
	}
	return &Client{
		config:   config,
		dial:     dialDirectory,
		recorder: recorder,
	}
}

// LoadConfig loads and validates LDAP configuration from environment variables
func LoadConfig() (*Config, error) {
	log.Println("[DEBUG] LoadConfig: Loading LDAP configuration from environment variables")
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		log.Printf("[ERROR] LoadConfig: Failed to process LDAP configuration: %v", err)
		return nil, fmt.Errorf("failed to process LDAP configuration: %w", err)
	}
	if err := config.Validate(); err != nil {
		log.Printf("[ERROR] LoadConfig: Invalid LDAP configuration: %v", err)
		return nil, err
	}
	log.Printf("[DEBUG] LoadConfig: LDAP configuration loaded - URL: %s, BaseDN: %s, BindUser: %s",
		config.URL, config.BaseDN, config.BindUser)
	return &config, nil
}

// Validate checks the fields envconfig cannot express on its own.
func (c *Config) Validate() error {
	if c.BindUser == "" {
		return fmt.Errorf("LDAP_BIND_USER is required")
	}
	if c.BindPassword == "" && c.BindPasswordFile == "" {
		return fmt.Errorf("one of LDAP_BIND_PASSWORD or LDAP_BIND_PASSWORD_FILE is required")
	}
	if !strings.HasPrefix(c.URL, "ldap://") && !strings.HasPrefix(c.URL, "ldaps://") {
		return fmt.Errorf("unsupported LDAP URL scheme: %s", c.URL)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("LDAP_TIMEOUT must be positive, got %s", c.Timeout)
	}
	return nil
}

// ServicePassword returns the service identity password. A password file is
// re-read on every call so a rotated secret applies to the next bind.
func (c *Config) ServicePassword() (string, error) {
	if c.BindPasswordFile == "" {
		return c.BindPassword, nil
	}
	data, err := os.ReadFile(c.BindPasswordFile)
	if err != nil {
		return "", fmt.Errorf("failed to read service password file: %w", err)
	}
	return strings.TrimRight(string(data), "\r\n"), nil
}

// UsersBaseDN is the search base for identity resolution.
func (c *Config) UsersBaseDN() string {
	return joinDN(c.UsersOU, c.BaseDN)
}

// GroupsBaseDN is the search base for group membership.
func (c *Config) GroupsBaseDN() string {
	return joinDN(c.GroupsOU, c.BaseDN)
}

func joinDN(rdn, base string) string {
	if rdn == "" {
		return base
	}
	return rdn + "," + base
}

// Connectivity

// dialDirectory creates a new LDAP connection with explicit dial and request timeouts
func dialDirectory(config *Config) (Conn, error) {
	log.Printf("[DEBUG] LDAP dial: Attempting to dial %s", config.URL)
	dialOpts := []ldap.DialOpt{ldap.DialWithDialer(&net.Dialer{Timeout: config.Timeout})}
	if strings.HasPrefix(config.URL, "ldaps://") {
		log.Printf("[DEBUG] LDAP dial: Using LDAPS with TLS config - SkipTLSVerify: %v", config.SkipTLSVerify)
		dialOpts = append(dialOpts, ldap.DialWithTLSConfig(&tls.Config{InsecureSkipVerify: config.SkipTLSVerify, MinVersion: tls.VersionTLS12}))
	}

	conn, err := ldap.DialURL(config.URL, dialOpts...)
	if err != nil {
		log.Printf("[ERROR] LDAP dial: Failed to dial %s: %v", config.URL, err)
		return nil, err
	}
	conn.SetTimeout(config.Timeout)
	return conn, nil
}

// open dials the directory and binds as bindDN. The caller owns the returned
// connection and must release it.
func (c *Client) open(bindDN, password string) (Conn, error) {
	conn, err := c.dial(c.config)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to connect to %s: %v", ErrDirectoryUnavailable, c.config.URL, err)
	}

	if err := conn.Bind(bindDN, password); err != nil {
		c.release(conn)
		return nil, classifyBindError(err)
	}
	return conn, nil
}

// release unbinds and closes a scoped connection
func (c *Client) release(conn Conn) {
	if err := conn.Unbind(); err != nil {
		log.Printf("[DEBUG] LDAP release: Unbind failed, closing connection: %v", err)
		if closeErr := conn.Close(); closeErr != nil {
			log.Printf("[WARN] LDAP release: Error closing connection: %v", closeErr)
		}
	}
}

// withServiceConnection runs fn on a connection bound as the service identity
// and releases it afterwards. A refused service bind is an outage for callers,
// never a refused user credential.
func (c *Client) withServiceConnection(fn func(conn Conn) error) error {
	password, err := c.config.ServicePassword()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDirectoryUnavailable, err)
	}

	conn, err := c.open(c.config.BindUser, password)
	if err != nil {
		if errors.Is(err, ErrRejected) {
			log.Printf("[ERROR] LDAP service bind: Directory refused service identity %s: %v", c.config.BindUser, err)
			return fmt.Errorf("%w: service identity bind refused: %v", ErrDirectoryUnavailable, err)
		}
		return err
	}
	defer c.release(conn)

	return fn(conn)
}

// observe records the result of one directory operation
func (c *Client) observe(operation string, err error, start time.Time) {
	outcome := Outcome(err)
	c.recorder.RecordDirectoryOperation(operation, outcome, time.Since(start))

	switch outcome {
	case OutcomeDirectoryUnavailable:
		c.recorder.SetDirectoryUp(false)
	case OutcomeInvalidInput:
	default:
		c.recorder.SetDirectoryUp(true)
	}
}

// searchTimeLimit converts the client timeout to the whole seconds the search
// request carries to the server.
func (c *Client) searchTimeLimit() int {
	seconds := int(c.config.Timeout / time.Second)
	if seconds < 1 {
		return 1
	}
	return seconds
}

// HealthCheck binds as the service identity and reads the base entry
func (c *Client) HealthCheck() error {
	log.Println("[DEBUG] LDAP HealthCheck: Performing health check")
	start := time.Now()

	err := c.withServiceConnection(func(conn Conn) error {
		req := ldap.NewSearchRequest(
			c.config.BaseDN,
			ldap.ScopeBaseObject, ldap.NeverDerefAliases, 1, c.searchTimeLimit(), false,
			"(objectClass=*)",
			[]string{"dn"},
			nil,
		)
		if _, err := conn.Search(req); err != nil {
			return fmt.Errorf("%w: base search failed: %v", ErrDirectoryUnavailable, err)
		}
		return nil
	})
	c.observe(OpHealth, err, start)

	if err != nil {
		log.Printf("[ERROR] LDAP HealthCheck: Health check failed: %v", err)
		return err
	}
	log.Println("[DEBUG] LDAP HealthCheck: Health check passed")
	return nil
}
