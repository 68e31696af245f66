package basicauth

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestMapAuthenticatorRejectsWrongPassword(t *testing.T) {
	a := &mapAuthenticator{users: map[string]string{
		"test": "$apr1$H6uskkkW$IgXLP6ewTrSuBkTrqE8wj/",
	}}
	assert.False(t, a.VerifyCredentials("test", "wrong-password"))
}

func TestMapAuthenticatorRejectsUnknownUser(t *testing.T) {
	a := &mapAuthenticator{users: map[string]string{}}
	assert.False(t, a.VerifyCredentials("ghost", "anything"))
}

func TestMapAuthenticatorAcceptsCorrectBcryptPassword(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.DefaultCost)
	require.NoError(t, err)

	a := &mapAuthenticator{users: map[string]string{"admin": string(hash)}}
	assert.True(t, a.VerifyCredentials("admin", "s3cret"))
	assert.False(t, a.VerifyCredentials("admin", "wrong"))
}

func TestCreateAuthenticatorLabelsSource(t *testing.T) {
	cfg := Config{
		Users:  map[string]string{"a": "b"},
		Source: AuthSource{Kind: SourceLabels},
	}
	auth, err := CreateAuthenticator(cfg)
	require.NoError(t, err)
	assert.NotNil(t, auth)
}

func TestCreateAuthenticatorHtpasswdFile(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("pw"), bcrypt.DefaultCost)
	require.NoError(t, err)

	dir := t.TempDir()
	path := filepath.Join(dir, ".htpasswd")
	require.NoError(t, os.WriteFile(path, []byte("# comment\nuser1:"+string(hash)+"\n\n"), 0o600))

	cfg := Config{Source: AuthSource{Kind: SourceHtpasswdFile, Path: path}}
	auth, err := CreateAuthenticator(cfg)
	require.NoError(t, err)
	assert.True(t, auth.VerifyCredentials("user1", "pw"))
}

func TestCreateAuthenticatorHtpasswdFileMissing(t *testing.T) {
	cfg := Config{Source: AuthSource{Kind: SourceHtpasswdFile, Path: "/nonexistent/path"}}
	_, err := CreateAuthenticator(cfg)
	require.Error(t, err)
}

func TestCreateAuthenticatorEnvVar(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("envpw"), bcrypt.DefaultCost)
	require.NoError(t, err)
	t.Setenv("BASIC_AUTH_CREDS", "envuser:"+string(hash))

	cfg := Config{Source: AuthSource{Kind: SourceEnvVar, Path: "BASIC_AUTH_CREDS"}}
	auth, err := CreateAuthenticator(cfg)
	require.NoError(t, err)
	assert.True(t, auth.VerifyCredentials("envuser", "envpw"))
}

func TestCreateAuthenticatorEnvVarUnset(t *testing.T) {
	cfg := Config{Source: AuthSource{Kind: SourceEnvVar, Path: "UNSET_VAR_XYZ"}}
	_, err := CreateAuthenticator(cfg)
	require.Error(t, err)
}

func TestCreateAuthenticatorDockerSecret(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("secretpw"), bcrypt.DefaultCost)
	require.NoError(t, err)

	dir := t.TempDir()
	path := filepath.Join(dir, "basic-auth")
	require.NoError(t, os.WriteFile(path, []byte("svcuser:"+string(hash)), 0o600))

	cfg := Config{Source: AuthSource{Kind: SourceDockerSecret, Path: path}}
	auth, err := CreateAuthenticator(cfg)
	require.NoError(t, err)
	assert.True(t, auth.VerifyCredentials("svcuser", "secretpw"))
}
