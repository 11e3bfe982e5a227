// Package cli provides shared CLI utilities for docrag and docragd.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const helpJSONFlag = "help-json"

// FlagSchema describes one command flag in --help-json output.
type FlagSchema struct {
	Name        string `json:"name"`
	Shorthand   string `json:"shorthand,omitempty"`
	Type        string `json:"type"`
	Default     string `json:"default,omitempty"`
	Persistent  bool   `json:"persistent,omitempty"`
	Description string `json:"description,omitempty"`
	Required    bool   `json:"required"`
}

// CommandSchema describes a command and its visible subcommands.
type CommandSchema struct {
	Name        string          `json:"name"`
	Use         string          `json:"use,omitempty"`
	Description string          `json:"description,omitempty"`
	Long        string          `json:"long,omitempty"`
	Flags       []FlagSchema    `json:"flags,omitempty"`
	Subcommands []CommandSchema `json:"subcommands,omitempty"`
}

// GenerateSchema walks cmd and its non-hidden subcommands.
func GenerateSchema(cmd *cobra.Command) CommandSchema {
	s := CommandSchema{
		Name:        cmd.Name(),
		Use:         cmd.Use,
		Description: cmd.Short,
		Long:        cmd.Long,
	}

	persistent := cmd.PersistentFlags()
	cmd.LocalFlags().VisitAll(func(f *pflag.Flag) {
		if f.Name == helpJSONFlag || f.Name == "help" {
			return
		}
		required := slices.Equal(f.Annotations[cobra.BashCompOneRequiredFlag], []string{"true"})
		s.Flags = append(s.Flags, FlagSchema{
			Name:        f.Name,
			Shorthand:   f.Shorthand,
			Type:        f.Value.Type(),
			Default:     f.DefValue,
			Persistent:  persistent.Lookup(f.Name) != nil,
			Description: f.Usage,
			Required:    required,
		})
	})

	for _, sub := range cmd.Commands() {
		if sub.Hidden || sub.Name() == "help" {
			continue
		}
		s.Subcommands = append(s.Subcommands, GenerateSchema(sub))
	}
	return s
}

// WriteSchema writes the indented schema of cmd to w.
func WriteSchema(w io.Writer, cmd *cobra.Command) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(GenerateSchema(cmd))
}

// AddHelpJSONFlag registers --help-json on cmd and its descendants.
func AddHelpJSONFlag(cmd *cobra.Command) {
	cmd.PersistentFlags().Bool(helpJSONFlag, false, "Output command schema as JSON")
}

// HelpJSONTarget returns the command addressed by args when they contain --help-json.
// It runs before cobra parses args, so required flags and argument counts do not apply.
func HelpJSONTarget(root *cobra.Command, args []string) (*cobra.Command, bool) {
	i := slices.Index(args, "--"+helpJSONFlag)
	if i < 0 {
		return nil, false
	}
	return findTargetCommand(root, args[:i]), true
}

// CheckHelpJSON prints the schema and exits when os.Args requests --help-json.
func CheckHelpJSON(root *cobra.Command) {
	target, ok := HelpJSONTarget(root, os.Args[1:])
	if !ok {
		return
	}
	if err := WriteSchema(os.Stdout, target); err != nil {
		fmt.Fprintf(os.Stderr, "Error generating schema: %v\n", err)
		os.Exit(1)
	}
	os.Exit(0)
}

func findTargetCommand(cmd *cobra.Command, args []string) *cobra.Command {
	if len(args) == 0 {
		return cmd
	}
	for _, sub := range cmd.Commands() {
		if sub.Name() == args[0] || sub.HasAlias(args[0]) {
			return findTargetCommand(sub, args[1:])
		}
	}
	return cmd
}
