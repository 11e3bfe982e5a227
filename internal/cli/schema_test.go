package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCommandTree() *cobra.Command {
	root := &cobra.Command{Use: "docrag", Short: "root"}
	AddHelpJSONFlag(root)
	root.PersistentFlags().String("api-url", "", "API base URL")

	docs := &cobra.Command{Use: "docs", Short: "Manage documents"}
	list := &cobra.Command{Use: "list", Short: "List documents", Run: func(*cobra.Command, []string) {}}
	list.Flags().Int("limit", 20, "Page size")
	list.Flags().String("cursor", "", "Page cursor")
	_ = list.MarkFlagRequired("cursor")
	hidden := &cobra.Command{Use: "secret", Hidden: true, Run: func(*cobra.Command, []string) {}}

	docs.AddCommand(list, hidden)
	root.AddCommand(docs)
	return root
}

func TestGenerateSchema(t *testing.T) {
	root := testCommandTree()

	schema := GenerateSchema(root)

	assert.Equal(t, "docrag", schema.Name)
	require.Len(t, schema.Flags, 1)
	assert.Equal(t, "api-url", schema.Flags[0].Name)
	assert.True(t, schema.Flags[0].Persistent)

	var docs *CommandSchema
	for i := range schema.Subcommands {
		if schema.Subcommands[i].Name == "docs" {
			docs = &schema.Subcommands[i]
		}
	}
	require.NotNil(t, docs)
	require.Len(t, docs.Subcommands, 1, "hidden commands are skipped")

	list := docs.Subcommands[0]
	assert.Equal(t, "List documents", list.Description)
	flags := map[string]FlagSchema{}
	for _, f := range list.Flags {
		flags[f.Name] = f
	}
	assert.Equal(t, "int", flags["limit"].Type)
	assert.Equal(t, "20", flags["limit"].Default)
	assert.False(t, flags["limit"].Required)
	assert.True(t, flags["cursor"].Required)
}

func TestFindTargetCommand(t *testing.T) {
	root := testCommandTree()

	assert.Equal(t, "list", findTargetCommand(root, []string{"docs", "list"}).Name())
	assert.Equal(t, "docs", findTargetCommand(root, []string{"docs", "--limit"}).Name())
	assert.Equal(t, "docrag", findTargetCommand(root, nil).Name())
}

func TestHelpJSONTarget(t *testing.T) {
	root := testCommandTree()

	target, ok := HelpJSONTarget(root, []string{"docs", "list", "--help-json"})
	require.True(t, ok)
	assert.Equal(t, "list", target.Name())

	_, ok = HelpJSONTarget(root, []string{"docs", "list"})
	assert.False(t, ok)
}

func TestWriteSchema(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSchema(&buf, testCommandTree()))

	var decoded CommandSchema
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "docrag", decoded.Name)
	assert.NotEmpty(t, decoded.Subcommands)
}
