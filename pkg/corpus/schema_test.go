package corpus

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func joinIssues(issues []Issue) string {
	parts := make([]string, 0, len(issues))
	for _, issue := range issues {
		parts = append(parts, issue.String())
	}
	return strings.Join(parts, "\n")
}

func TestValidateSettings_Valid(t *testing.T) {
	issues, err := ValidateSettings([]byte(validSettings))
	require.NoError(t, err)
	assert.Empty(t, issues, "unexpected issues: %s", joinIssues(issues))
}

func TestValidateSettings_ExtraTopLevelFieldsAllowed(t *testing.T) {
	issues, err := ValidateSettings([]byte(`{"model": "sonnet", "env": {"CI": "true"}}`))
	require.NoError(t, err)
	assert.Empty(t, issues, "unexpected issues: %s", joinIssues(issues))
}

func TestValidateSettings_MissingCommand(t *testing.T) {
	issues, err := ValidateSettings([]byte(`{
		"hooks": {
			"SessionStart": [{"hooks": [{"type": "command"}]}]
		}
	}`))
	require.NoError(t, err)
	require.NotEmpty(t, issues)
	assert.Contains(t, joinIssues(issues), "command")
	assert.Contains(t, joinIssues(issues), "/hooks/SessionStart/0/hooks/0")
}

func TestValidateSettings_UnknownEvent(t *testing.T) {
	issues, err := ValidateSettings([]byte(`{
		"hooks": {
			"PostToolUse": [{"hooks": [{"type": "command", "command": "true"}]}]
		}
	}`))
	require.NoError(t, err)
	assert.NotEmpty(t, issues)
}

func TestValidateSettings_WrongTimeoutType(t *testing.T) {
	issues, err := ValidateSettings([]byte(`{
		"hooks": {
			"SessionEnd": [{"hooks": [{"type": "command", "command": "true", "timeout": "30s"}]}]
		}
	}`))
	require.NoError(t, err)
	require.NotEmpty(t, issues)
	assert.Contains(t, joinIssues(issues), "/hooks/SessionEnd/0/hooks/0/timeout")
}

func TestValidateSettings_InvalidJSON(t *testing.T) {
	issues, err := ValidateSettings([]byte("{"))
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Contains(t, issues[0].Message, "invalid JSON")
}

func TestValidateMCP_Valid(t *testing.T) {
	issues, err := ValidateMCP([]byte(validMCP))
	require.NoError(t, err)
	assert.Empty(t, issues, "unexpected issues: %s", joinIssues(issues))
}

func TestValidateMCP_MissingCatalog(t *testing.T) {
	issues, err := ValidateMCP([]byte(`{}`))
	require.NoError(t, err)
	require.NotEmpty(t, issues)
	assert.Contains(t, joinIssues(issues), "mcpServers")
}

func TestValidateMCP_ServerNeedsCommandOrURL(t *testing.T) {
	issues, err := ValidateMCP([]byte(`{"mcpServers": {"broken": {"args": ["-y"]}}}`))
	require.NoError(t, err)
	require.NotEmpty(t, issues)
	joined := joinIssues(issues)
	assert.Contains(t, joined, "command")
	assert.Contains(t, joined, "url")
}

func TestValidateMCP_UnknownServerField(t *testing.T) {
	issues, err := ValidateMCP([]byte(`{"mcpServers": {"broken": {"command": "npx", "cmd": "npx"}}}`))
	require.NoError(t, err)
	require.NotEmpty(t, issues)
	assert.Contains(t, joinIssues(issues), "cmd")
}

func TestValidateMCP_BadTransportType(t *testing.T) {
	issues, err := ValidateMCP([]byte(`{"mcpServers": {"docs": {"url": "https://example.com", "type": "websocket"}}}`))
	require.NoError(t, err)
	require.NotEmpty(t, issues)
	assert.Contains(t, joinIssues(issues), "/mcpServers/docs/type")
}
