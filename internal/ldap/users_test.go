package ldap

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/cpp-cyber/dirauth/internal/metrics"
	ldapv3 "github.com/go-ldap/ldap/v3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveIdentity_CaseVariants(t *testing.T) {
	client, dir := newTestClient()

	for _, username := range []string{"alice", "Alice", "ALICE", "aLiCe"} {
		t.Run(username, func(t *testing.T) {
			dn, err := client.ResolveIdentity(username)
			require.NoError(t, err)
			assert.Equal(t, aliceDN, dn)
		})
	}

	assert.Equal(t, 0, dir.openConnections(), "every connection must be released")
	assert.Equal(t, 0, dir.userBindCount(), "resolution must only bind as the service identity")
}

func TestResolveIdentity_NotFound(t *testing.T) {
	client, dir := newTestClient()

	dn, err := client.ResolveIdentity("bob")
	assert.Empty(t, dn)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, ErrDirectoryUnavailable)
	assert.Equal(t, 0, dir.openConnections())
}

func TestResolveIdentity_EmptyUsername(t *testing.T) {
	client, dir := newTestClient()

	for _, username := range []string{"", "   "} {
		_, err := client.ResolveIdentity(username)
		assert.ErrorIs(t, err, ErrInvalidInput)
	}
	assert.Equal(t, 0, dir.dials, "invalid input must not reach the directory")
}

func TestResolveIdentity_SearchRequest(t *testing.T) {
	client, dir := newTestClient()

	_, err := client.ResolveIdentity("aLICE")
	require.NoError(t, err)
	require.Len(t, dir.requests, 1)

	req := dir.requests[0]
	assert.Equal(t, "ou=users,dc=example,dc=org", req.BaseDN)
	assert.Equal(t, ldapv3.ScopeWholeSubtree, req.Scope)
	assert.Equal(t, "(|(uid=alice)(cn=aLICE)(cn=Alice))", req.Filter)
	assert.Equal(t, []string{"cn"}, req.Attributes)
	assert.Equal(t, 5, req.TimeLimit)
}

func TestResolveIdentity_EscapesFilter(t *testing.T) {
	client, dir := newTestClient()

	_, err := client.ResolveIdentity("*)(uid=*")
	assert.ErrorIs(t, err, ErrNotFound)
	require.Len(t, dir.requests, 1)
	assert.Equal(t, `(|(uid=\2a\29\28uid=\2a)(cn=\2a\29\28uid=\2a)(cn=\2a\29\28uid=\2a))`, dir.requests[0].Filter)
}

func TestResolveIdentity_DirectoryUnavailable(t *testing.T) {
	tests := []struct {
		name  string
		setup func(d *fakeDirectory)
	}{
		{
			name:  "dial failure",
			setup: func(d *fakeDirectory) { d.dialErr = errors.New("dial tcp: connection refused") },
		},
		{
			name: "search failure",
			setup: func(d *fakeDirectory) {
				d.searchErr = ldapv3.NewError(ldapv3.ErrorNetwork, errors.New("ldap: connection closed"))
			},
		},
		{
			name: "service identity refused",
			setup: func(d *fakeDirectory) {
				rotated := *d.config
				rotated.BindPassword = "rotated-away"
				d.config = &rotated
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := testConfig()
			dir := newFakeDirectory(config)
			client := NewClient(config, nil)
			client.dial = dir.dial
			tt.setup(dir)

			dn, err := client.ResolveIdentity("alice")
			assert.Empty(t, dn)
			assert.ErrorIs(t, err, ErrDirectoryUnavailable)
			assert.NotErrorIs(t, err, ErrNotFound)
			assert.NotErrorIs(t, err, ErrRejected)
			assert.Equal(t, 0, dir.openConnections())
		})
	}
}

func TestResolveIdentity_FirstEntryWins(t *testing.T) {
	client, dir := newTestClient()
	dir.users = append(dir.users, fakeUser{dn: "cn=Alice,ou=contractors,ou=users,dc=example,dc=org", uid: "alice2", cn: "Alice"})

	dn, err := client.ResolveIdentity("Alice")
	require.NoError(t, err)
	assert.Equal(t, aliceDN, dn)
}

func TestVerifyCredential(t *testing.T) {
	tests := []struct {
		name     string
		identity string
		password string
		wantErr  error
	}{
		{name: "correct password", identity: aliceDN, password: "wonderland"},
		{name: "wrong password", identity: aliceDN, password: "guess", wantErr: ErrRejected},
		{name: "empty password", identity: aliceDN, password: "", wantErr: ErrRejected},
		{name: "other user's password", identity: carolDN, password: "wonderland", wantErr: ErrRejected},
		{name: "unresolved identity", identity: "", password: "wonderland", wantErr: ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, dir := newTestClient()

			err := client.VerifyCredential(tt.identity, tt.password)
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			assert.Equal(t, 0, dir.openConnections())
		})
	}
}

func TestVerifyCredential_OnlyBindsAsUser(t *testing.T) {
	client, dir := newTestClient()

	require.NoError(t, client.VerifyCredential(aliceDN, "wonderland"))
	assert.Equal(t, []string{aliceDN}, dir.userBinds)
	assert.Empty(t, dir.requests, "no operation may run as the verified identity")
}

func TestVerifyCredential_DirectoryUnavailable(t *testing.T) {
	t.Run("dial failure", func(t *testing.T) {
		client, dir := newTestClient()
		dir.dialErr = errors.New("dial tcp: i/o timeout")

		err := client.VerifyCredential(aliceDN, "wonderland")
		assert.ErrorIs(t, err, ErrDirectoryUnavailable)
		assert.NotErrorIs(t, err, ErrRejected)
	})

	t.Run("network error during bind", func(t *testing.T) {
		client, dir := newTestClient()
		dir.bindErr = ldapv3.NewError(ldapv3.ErrorNetwork, errors.New("ldap: connection timed out"))

		err := client.VerifyCredential(aliceDN, "wonderland")
		assert.ErrorIs(t, err, ErrDirectoryUnavailable)
		assert.NotErrorIs(t, err, ErrRejected)
		assert.Equal(t, 0, dir.openConnections())
	})

	t.Run("server busy", func(t *testing.T) {
		client, dir := newTestClient()
		dir.bindErr = ldapv3.NewError(ldapv3.LDAPResultBusy, errors.New("busy"))

		err := client.VerifyCredential(aliceDN, "wonderland")
		assert.ErrorIs(t, err, ErrDirectoryUnavailable)
	})
}

func TestClient_RecordsDirectoryLiveness(t *testing.T) {
	config := testConfig()
	dir := newFakeDirectory(config)
	recorder := metrics.New(prometheus.NewRegistry())
	client := NewClient(config, recorder)
	client.dial = dir.dial

	_, err := client.ResolveIdentity("bob")
	require.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 1.0, testutil.ToFloat64(recorder.DirectoryUp), "a not-found answer still proves the directory is up")

	dir.dialErr = errors.New("connection refused")
	_, err = client.ResolveIdentity("alice")
	require.ErrorIs(t, err, ErrDirectoryUnavailable)
	assert.Equal(t, 0.0, testutil.ToFloat64(recorder.DirectoryUp))

	assert.Equal(t, 1.0, testutil.ToFloat64(recorder.DirectoryOperationsTotal.WithLabelValues(OpResolve, OutcomeNotFound)))
	assert.Equal(t, 1.0, testutil.ToFloat64(recorder.DirectoryOperationsTotal.WithLabelValues(OpResolve, OutcomeDirectoryUnavailable)))
}

func TestServicePassword_FromFile(t *testing.T) {
	config := testConfig()
	config.BindPassword = ""
	config.BindPasswordFile = filepath.Join(t.TempDir(), "bind-password")

	require.NoError(t, os.WriteFile(config.BindPasswordFile, []byte("first\n"), 0o600))
	password, err := config.ServicePassword()
	require.NoError(t, err)
	assert.Equal(t, "first", password)

	// rotation is picked up without rebuilding the client
	require.NoError(t, os.WriteFile(config.BindPasswordFile, []byte("second"), 0o600))
	password, err = config.ServicePassword()
	require.NoError(t, err)
	assert.Equal(t, "second", password)
}

func TestServicePassword_MissingFileIsUnavailable(t *testing.T) {
	client, dir := newTestClient()
	client.config.BindPasswordFile = filepath.Join(t.TempDir(), "missing")

	_, err := client.ResolveIdentity("alice")
	assert.ErrorIs(t, err, ErrDirectoryUnavailable)
	assert.Equal(t, 0, dir.dials)
}

func TestCapitalize(t *testing.T) {
	tests := map[string]string{
		"alice":  "Alice",
		"ALICE":  "Alice",
		"a":      "A",
		"élodie": "Élodie",
		"":       "",
	}
	for in, want := range tests {
		assert.Equal(t, want, capitalize(in), "capitalize(%q)", in)
	}
}

func TestOutcome(t *testing.T) {
	assert.Equal(t, OutcomeSuccess, Outcome(nil))
	assert.Equal(t, OutcomeNotFound, Outcome(ErrNotFound))
	assert.Equal(t, OutcomeRejected, Outcome(classifyBindError(ldapv3.NewError(ldapv3.LDAPResultInvalidCredentials, errors.New("x")))))
	assert.Equal(t, OutcomeDirectoryUnavailable, Outcome(classifyBindError(ldapv3.NewError(ldapv3.ErrorNetwork, errors.New("x")))))
	assert.Equal(t, OutcomeInvalidInput, Outcome(ErrInvalidInput))
	assert.Equal(t, OutcomeDirectoryUnavailable, Outcome(errors.New("anything else")))
}
