package client

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthLogin_StoresCredentials(t *testing.T) {
	useTempConfigDir(t)
	var out bytes.Buffer

	err := runAuthLogin(strings.NewReader(""), &out, "drg-secret-token", "http://rag.example.com/")
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Credentials saved")

	cfg, err := LoadGlobalConfig()
	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, "drg-secret-token", cfg.APIKey)
	assert.Equal(t, "http://rag.example.com", cfg.APIURL)
}

func TestAuthLogin_PromptsForKey(t *testing.T) {
	useTempConfigDir(t)
	var out bytes.Buffer

	err := runAuthLogin(strings.NewReader("drg-from-prompt\n"), &out, "", defaultAPIURL)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Enter API key")

	cfg, err := LoadGlobalConfig()
	require.NoError(t, err)
	assert.Equal(t, "drg-from-prompt", cfg.APIKey)
}

func TestAuthLogin_RejectsInvalidInput(t *testing.T) {
	useTempConfigDir(t)

	tests := []struct {
		name string
		key  string
		url  string
	}{
		{"whitespace in key", "drg secret", defaultAPIURL},
		{"missing scheme", "drg-secret-token", "localhost:8080"},
		{"empty prompt", "", defaultAPIURL},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			err := runAuthLogin(strings.NewReader("\n"), &out, tt.key, tt.url)
			assert.Error(t, err)
		})
	}

	cfg, err := LoadGlobalConfig()
	require.NoError(t, err)
	assert.Nil(t, cfg)
}

func TestAuthLogout_Command(t *testing.T) {
	useTempConfigDir(t)
	require.NoError(t, SaveGlobalConfig(&GlobalConfig{APIKey: "drg-secret-token"}))

	cmd := AuthCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"logout"})
	require.NoError(t, cmd.Execute())

	assert.Contains(t, out.String(), "Credentials removed")
	cfg, err := LoadGlobalConfig()
	require.NoError(t, err)
	assert.Nil(t, cfg)
}

func TestWriteAuthStatus_Text(t *testing.T) {
	var out bytes.Buffer
	creds := Credentials{
		APIKey:    "drg-0123456789abcdef",
		APIURL:    "http://saved.test",
		KeySource: SourceGlobalConfig,
		URLSource: SourceEnv,
	}
	require.NoError(t, writeAuthStatus(&out, creds, false))

	assert.Contains(t, out.String(), "API URL: http://saved.test (env)")
	assert.Contains(t, out.String(), "API key: drg-...cdef (global_config)")
	assert.NotContains(t, out.String(), "0123456789")
}

func TestWriteAuthStatus_NoKey(t *testing.T) {
	var out bytes.Buffer
	creds := Credentials{APIURL: defaultAPIURL, KeySource: SourceNone, URLSource: SourceDefault}
	require.NoError(t, writeAuthStatus(&out, creds, false))

	assert.Contains(t, out.String(), "API key: none")
}

func TestWriteAuthStatus_JSON(t *testing.T) {
	var out bytes.Buffer
	creds := Credentials{
		APIKey:    "drg-0123456789abcdef",
		APIURL:    defaultAPIURL,
		KeySource: SourceFlag,
		URLSource: SourceDefault,
	}
	require.NoError(t, writeAuthStatus(&out, creds, true))

	var status map[string]string
	require.NoError(t, json.Unmarshal(out.Bytes(), &status))
	assert.Equal(t, "flag", status["key_source"])
	assert.Equal(t, "default", status["url_source"])
	assert.Equal(t, "drg-...cdef", status["api_key"])
}

func TestMaskAPIKey(t *testing.T) {
	assert.Equal(t, "***", maskAPIKey("short"))
	assert.Equal(t, "drg-...cdef", maskAPIKey("drg-0123456789abcdef"))
}
