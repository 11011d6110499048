package auth

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/cpp-cyber/dirauth/internal/access"
	"github.com/cpp-cyber/dirauth/internal/audit"
	"github.com/cpp-cyber/dirauth/internal/ldap"
	"github.com/cpp-cyber/dirauth/internal/metrics"
	"github.com/google/uuid"
	"github.com/kelseyhightower/envconfig"
	"golang.org/x/sync/errgroup"
)

// LoadConfig loads auth service configuration from environment variables
func LoadConfig() (*Config, error) {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		return nil, fmt.Errorf("failed to process auth configuration: %w", err)
	}
	return &config, nil
}

// NewAuthService wires the service to a directory. Nil recorder and auditor
// fall back to no-op implementations.
func NewAuthService(config *Config, directory ldap.Service, recorder metrics.Recorder, auditor audit.Recorder) *AuthService {
	if config == nil {
		config = &Config{}
	}
	if recorder == nil {
		recorder = metrics.NewNoopMetrics()
	}
	if auditor == nil {
		auditor = audit.Noop{}
	}

	return &AuthService{
		config:    config,
		directory: directory,
		recorder:  recorder,
		auditor:   auditor,
	}
}

// Authenticate resolves username, verifies password against the resolved
// identity and fetches its groups. Every directory failure is folded into an
// unauthenticated result; the only error returned is ldap.ErrInvalidInput.
func (s *AuthService) Authenticate(username string, password string) (AuthResult, error) {
	attemptID := uuid.NewString()
	start := time.Now()
	username = strings.TrimSpace(username)

	if username == "" {
		s.finish(attemptID, username, ldap.OutcomeInvalidInput, start)
		return AuthResult{}, fmt.Errorf("%w: username cannot be empty", ldap.ErrInvalidInput)
	}

	// Resolving
	log.Printf("[DEBUG] Authenticate[%s]: Resolving identity for %s", attemptID, username)
	identity, err := s.directory.ResolveIdentity(username)
	if err != nil {
		switch {
		case errors.Is(err, ldap.ErrNotFound):
			log.Printf("[INFO] Authenticate[%s]: User not found: %s", attemptID, username)
		case errors.Is(err, ldap.ErrInvalidInput):
			s.finish(attemptID, username, ldap.OutcomeInvalidInput, start)
			return AuthResult{}, err
		default:
			log.Printf("[ERROR] Authenticate[%s]: Directory unavailable while resolving %s: %v", attemptID, username, err)
		}
		s.finish(attemptID, username, ldap.Outcome(err), start)
		return AuthResult{}, nil
	}

	// Verifying and FetchingGroups
	var groups []string
	if s.config.ParallelGroupFetch {
		groups, err = s.verifyAndFetchGroups(identity, password)
	} else {
		err = s.directory.VerifyCredential(identity, password)
		if err == nil {
			groups = s.directory.FetchGroups(identity)
		}
	}

	if err != nil {
		switch {
		case errors.Is(err, ldap.ErrRejected):
			log.Printf("[INFO] Authenticate[%s]: Credential rejected for %s (DN: %s)", attemptID, username, identity)
		case errors.Is(err, ldap.ErrInvalidInput):
			log.Printf("[ERROR] Authenticate[%s]: Verification called without identity for %s: %v", attemptID, username, err)
		default:
			log.Printf("[ERROR] Authenticate[%s]: Directory unavailable while verifying %s (DN: %s): %v", attemptID, username, identity, err)
		}
		s.finish(attemptID, username, ldap.Outcome(err), start)
		return AuthResult{}, nil
	}

	if groups == nil {
		groups = []string{}
	}

	log.Printf("[INFO] Authenticate[%s]: Authentication successful for %s (DN: %s), groups: %v", attemptID, username, identity, groups)
	s.finish(attemptID, username, ldap.OutcomeSuccess, start)
	return AuthResult{Authenticated: true, Groups: groups}, nil
}

// verifyAndFetchGroups runs the credential check and the group lookup side by
// side. Groups are only returned when the credential was accepted.
func (s *AuthService) verifyAndFetchGroups(identity, password string) ([]string, error) {
	var (
		g      errgroup.Group
		groups []string
	)

	g.Go(func() error {
		return s.directory.VerifyCredential(identity, password)
	})
	g.Go(func() error {
		groups = s.directory.FetchGroups(identity)
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return groups, nil
}

// finish records the terminal outcome of one attempt
func (s *AuthService) finish(attemptID, username, outcome string, start time.Time) {
	s.recorder.RecordAuthAttempt(outcome, time.Since(start))

	err := s.auditor.Record(audit.Event{
		ID:        attemptID,
		Username:  username,
		Outcome:   outcome,
		CreatedAt: start,
	})
	if err != nil {
		log.Printf("[WARN] Authenticate[%s]: Failed to record audit event: %v", attemptID, err)
	}
}

// Authorize reports whether groups grant requiredGroup. It is meant to be
// called on every request to a gated resource.
func (s *AuthService) Authorize(groups []string, requiredGroup string) bool {
	decision, err := access.Evaluate(groups, requiredGroup)
	if err != nil {
		log.Printf("[ERROR] Authorize: %v", err)
		return false
	}
	return decision.Allowed
}

func (s *AuthService) HealthCheck() error {
	return s.directory.HealthCheck()
}
