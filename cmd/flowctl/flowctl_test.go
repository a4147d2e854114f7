package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sellerops/internal/flow"
)

const restockFlow = `id: flow-1
name: Restock check
trigger: manual
blocks:
  - id: b1
    category: collect
    option: Upload Sheet
    name: Inventory sheet
steps:
  - id: s1
    title: Pull inventory
    order: 0
    blockRef: b1
  - id: s2
    title: Decide reorders
    order: 1
    isAgentStep: true
    agentPrompt: Pick SKUs under two weeks of cover
`

func writeFlow(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "restock.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	writeInPlace = false
	return out.String(), err
}

func TestValidateCommand(t *testing.T) {
	out, err := run(t, "validate", writeFlow(t, restockFlow))
	require.NoError(t, err)
	assert.Contains(t, out, `"Restock check" is valid`)

	broken := strings.Replace(restockFlow, "blockRef: b1", "blockRef: gone", 1)
	_, err = run(t, "validate", writeFlow(t, broken))
	assert.Error(t, err)
}

func TestArrangeCommand_WritesPositions(t *testing.T) {
	path := writeFlow(t, restockFlow)
	_, err := run(t, "arrange", "-w", path)
	require.NoError(t, err)

	f, err := flow.LoadFile(path)
	require.NoError(t, err)
	for _, s := range f.Steps {
		assert.NotNil(t, s.CanvasPosition, s.ID)
	}
}

func TestSimulateCommand(t *testing.T) {
	out, err := run(t, "simulate", writeFlow(t, restockFlow))
	require.NoError(t, err)

	var outcomes []stepOutcome
	require.NoError(t, json.Unmarshal([]byte(out), &outcomes))
	require.Len(t, outcomes, 2)

	require.NotNil(t, outcomes[0].Outcome)
	assert.True(t, outcomes[0].Outcome.Success)
	assert.True(t, outcomes[0].Outcome.DemoMode)
	assert.Equal(t, true, outcomes[0].Outcome.Result["simulated"])

	assert.True(t, outcomes[1].Agent)
	assert.Nil(t, outcomes[1].Outcome)
}

func TestCheckFlowFile(t *testing.T) {
	assert.True(t, strings.HasPrefix(checkFlowFile(writeFlow(t, restockFlow)), "✅"))
	assert.True(t, strings.HasPrefix(checkFlowFile(filepath.Join(t.TempDir(), "missing.yaml")), "❌"))
	assert.True(t, isFlowFile("a.YML"))
	assert.False(t, isFlowFile("a.json"))
}

func TestTokenCommand(t *testing.T) {
	t.Setenv("JWT_SECRET", "cli-secret")
	out, err := run(t, "token", "--user", "seller-1")
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(strings.TrimSpace(out), "."))
}
