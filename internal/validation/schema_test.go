package validation

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validConfigYAML = `base_url: "https://openrouter.ai/api/v1"
generator_model: "deepseek/deepseek-v3.2"
auditor_model: "anthropic/claude-haiku-4.5"
max_takeovers: 10
base_temperature: 0.0
judge_temperature: 0.1
provider_options:
  api_key_env: TT_KEY
`

const invalidConfigYAML = `generator_model: ""
max_takeovers: 0
base_temperature: 3.5
unknown_field: true
`

func TestValidateConfigBytes_Valid(t *testing.T) {
	errs := ValidateConfigBytes([]byte(validConfigYAML))
	require.Empty(t, errs, "valid config should have no errors")
}

func TestValidateConfigBytes_Invalid(t *testing.T) {
	errs := ValidateConfigBytes([]byte(invalidConfigYAML))
	require.NotEmpty(t, errs)

	joined := ""
	for _, e := range errs {
		joined += e + "\n"
	}
	assert.Contains(t, joined, "/generator_model")
	assert.Contains(t, joined, "/max_takeovers")
	assert.Contains(t, joined, "/base_temperature")
}

func TestValidateConfigBytes_MalformedYAML(t *testing.T) {
	errs := ValidateConfigBytes([]byte("base_url: [oops\n"))
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "YAML parse error")
}

func TestValidateConfigBytes_EmptyDocumentIsValid(t *testing.T) {
	// An empty file means "all defaults", which is a legal configuration.
	errs := ValidateConfigBytes([]byte("{}\n"))
	require.Empty(t, errs)
}

func TestValidateConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".thinktwice.yaml")
	require.NoError(t, os.WriteFile(path, []byte(validConfigYAML), 0o644))

	errs, err := ValidateConfigFile(path)
	require.NoError(t, err)
	assert.Empty(t, errs)
}

func TestValidateConfigFile_Missing(t *testing.T) {
	_, err := ValidateConfigFile(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}
