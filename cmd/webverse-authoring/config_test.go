package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toothbrush/webverse-authoring/aem"
)

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{in: "30", want: 30 * time.Second},
		{in: " 5 ", want: 5 * time.Second},
		{in: "1m30s", want: 90 * time.Second},
		{in: "250ms", want: 250 * time.Millisecond},
		{in: "0", wantErr: true},
		{in: "-5s", wantErr: true},
		{in: "soon", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseDuration(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func newFlagCommand(t *testing.T) *cobra.Command {
	t.Helper()

	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().String("aem-host", "", "")
	cmd.Flags().String("aem-timeout", "30", "")
	cmd.Flags().Bool("debug", false, "")
	cmd.Flags().StringSlice("markets", []string{"uk", "fr"}, "")
	return cmd
}

func TestBindFlagsFromConfigFile(t *testing.T) {
	cmd := newFlagCommand(t)
	debug := true

	err := bindFlags(cmd, YamlConfig{
		Debug:   &debug,
		AEMHost: "https://author.example.com",
		Markets: []string{"de", "it"},
		// No such flag on this command, which is fine.
		Port: "9000",
	})
	require.NoError(t, err)

	host, _ := cmd.Flags().GetString("aem-host")
	assert.Equal(t, "https://author.example.com", host)
	gotDebug, _ := cmd.Flags().GetBool("debug")
	assert.True(t, gotDebug)
	markets, _ := cmd.Flags().GetStringSlice("markets")
	assert.Equal(t, []string{"de", "it"}, markets)
	timeout, _ := cmd.Flags().GetString("aem-timeout")
	assert.Equal(t, "30", timeout, "unset config values keep the default")
}

func TestBindFlagsKeepsExplicitFlags(t *testing.T) {
	cmd := newFlagCommand(t)
	require.NoError(t, cmd.Flags().Set("aem-host", "https://flag.example.com"))

	require.NoError(t, bindFlags(cmd, YamlConfig{AEMHost: "https://file.example.com"}))

	host, _ := cmd.Flags().GetString("aem-host")
	assert.Equal(t, "https://flag.example.com", host)
}

func TestBindFlagsRejectsBadValues(t *testing.T) {
	cmd := newFlagCommand(t)
	debug := true
	cmd.Flags().Int("port", 0, "")

	err := bindFlags(cmd, YamlConfig{Debug: &debug, Port: "eighty"})
	assert.ErrorContains(t, err, "port")
}

func TestEnvironmentWinsOverConfigFile(t *testing.T) {
	t.Setenv("AEM_HOST", "https://env.example.com")
	t.Setenv("MARKETS", "es,pt")
	t.Setenv("AEM_TIMEOUT", "")

	cmd := newFlagCommand(t)
	require.NoError(t, bindEnv(cmd))
	require.NoError(t, bindFlags(cmd, YamlConfig{
		AEMHost:    "https://file.example.com",
		AEMTimeout: "45s",
		Markets:    []string{"de"},
	}))

	host, _ := cmd.Flags().GetString("aem-host")
	assert.Equal(t, "https://env.example.com", host)
	markets, _ := cmd.Flags().GetStringSlice("markets")
	assert.Equal(t, []string{"es", "pt"}, markets)
	timeout, _ := cmd.Flags().GetString("aem-timeout")
	assert.Equal(t, "45s", timeout, "empty environment variables are ignored")
}

// setGlobals overrides the flag globals for one test.
func setGlobals(t *testing.T, set func()) {
	t.Helper()

	saved := []string{AuthMode, AEMUsername, AEMPassword, ServiceTokenFile, ServiceUserMapping, TokenMaxAge}
	t.Cleanup(func() {
		AuthMode, AEMUsername, AEMPassword = saved[0], saved[1], saved[2]
		ServiceTokenFile, ServiceUserMapping, TokenMaxAge = saved[3], saved[4], saved[5]
	})
	set()
}

func TestNewCredentialsBasic(t *testing.T) {
	setGlobals(t, func() {
		AuthMode = "basic"
		AEMUsername = "author"
		AEMPassword = "hunter2"
	})

	creds, err := newCredentials()
	require.NoError(t, err)
	basic, ok := creds.(*aem.BasicAuth)
	require.True(t, ok, "got %T", creds)
	assert.Equal(t, "author", basic.Username)

	AEMPassword = ""
	_, err = newCredentials()
	assert.ErrorContains(t, err, "AEM_PASSWORD")
}

func TestNewCredentialsServiceToken(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token")
	require.NoError(t, os.WriteFile(path, []byte("abc123\n"), 0o600))

	setGlobals(t, func() {
		AuthMode = "service_token"
		ServiceTokenFile = path
		ServiceUserMapping = "com.example.authoring:writer=authoring-service"
		TokenMaxAge = "2m"
	})

	creds, err := newCredentials()
	require.NoError(t, err)
	token, ok := creds.(*aem.ServiceToken)
	require.True(t, ok, "got %T", creds)
	assert.Equal(t, 2*time.Minute, token.MaxAge)
	assert.Equal(t, "authoring-service", token.Principal())

	got, err := token.Token(t.Context())
	require.NoError(t, err)
	assert.Equal(t, "abc123", got)
}

func TestNewCredentialsRejectsUnknownMode(t *testing.T) {
	setGlobals(t, func() { AuthMode = "kerberos" })

	_, err := newCredentials()
	assert.ErrorContains(t, err, "kerberos")
}

func TestMask(t *testing.T) {
	assert.Equal(t, "(unset)", mask(""))
	assert.Equal(t, "********", mask("hunter2"))
}
