package auth

import (
	"github.com/cpp-cyber/dirauth/internal/audit"
	"github.com/cpp-cyber/dirauth/internal/ldap"
	"github.com/cpp-cyber/dirauth/internal/metrics"
)

// =================================================
// Auth Service Interface
// =================================================

type Service interface {
	// Authentication
	Authenticate(username, password string) (AuthResult, error)

	// Authorization
	Authorize(groups []string, requiredGroup string) bool

	// Health and Connection
	HealthCheck() error
}

type AuthService struct {
	config    *Config
	directory ldap.Service
	recorder  metrics.Recorder
	auditor   audit.Recorder
}

type Config struct {
	ParallelGroupFetch bool `envconfig:"AUTH_PARALLEL_GROUP_FETCH" default:"false"`
}

// AuthResult is the outward verdict of one authentication attempt. Groups is
// nil whenever Authenticated is false.
type AuthResult struct {
	Authenticated bool     `json:"authenticated"`
	Groups        []string `json:"groups"`
}
