package client

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/spf13/cobra"
)

// AuthCmd creates the auth parent command
func AuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage saved API credentials",
	}

	cmd.AddCommand(authLoginCmd(), authLogoutCmd(), authStatusCmd())
	return cmd
}

func authLoginCmd() *cobra.Command {
	var apiKey, apiURL string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Save an API key and URL",
		Long:  "Store the API key and URL in the user config directory (docrag/config.yaml)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAuthLogin(cmd.InOrStdin(), cmd.OutOrStdout(), apiKey, apiURL)
		},
	}

	cmd.Flags().StringVar(&apiKey, "key", "", "API key (prompted when omitted)")
	cmd.Flags().StringVar(&apiURL, "url", defaultAPIURL, "API URL")
	return cmd
}

func authLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove saved credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := DeleteGlobalConfig(); err != nil {
				return fmt.Errorf("failed to logout: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Credentials removed")
			return nil
		},
	}
}

func authStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show which credentials the CLI will use",
		RunE: func(cmd *cobra.Command, args []string) error {
			flagKey, _ := cmd.Flags().GetString("api-key")
			flagURL, _ := cmd.Flags().GetString("api-url")
			creds, err := ResolveCredentials(flagKey, flagURL)
			if err != nil {
				return err
			}
			return writeAuthStatus(cmd.OutOrStdout(), creds, outputJSON(cmd))
		},
	}
}

func runAuthLogin(in io.Reader, out io.Writer, apiKey, apiURL string) error {
	if apiKey == "" {
		fmt.Fprint(out, "Enter API key: ")
		line, err := bufio.NewReader(in).ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("failed to read API key: %w", err)
		}
		apiKey = strings.TrimSpace(line)
	}

	if apiKey == "" || strings.ContainsAny(apiKey, " \t\r\n") {
		return fmt.Errorf("API key must be a non-empty token without whitespace")
	}
	if u, err := url.Parse(apiURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid API URL %q", apiURL)
	}

	if err := SaveGlobalConfig(&GlobalConfig{APIKey: apiKey, APIURL: strings.TrimRight(apiURL, "/")}); err != nil {
		return fmt.Errorf("failed to save credentials: %w", err)
	}

	fmt.Fprintln(out, "Credentials saved")
	return nil
}

func writeAuthStatus(out io.Writer, creds Credentials, asJSON bool) error {
	if asJSON {
		status := map[string]any{
			"api_url":    creds.APIURL,
			"url_source": string(creds.URLSource),
			"key_source": string(creds.KeySource),
		}
		if creds.APIKey != "" {
			status["api_key"] = maskAPIKey(creds.APIKey)
		}
		data, err := json.MarshalIndent(status, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal status: %w", err)
		}
		fmt.Fprintln(out, string(data))
		return nil
	}

	fmt.Fprintf(out, "API URL: %s (%s)\n", creds.APIURL, creds.URLSource)
	if creds.APIKey == "" {
		fmt.Fprintln(out, "API key: none (requests are sent without authentication)")
		return nil
	}
	fmt.Fprintf(out, "API key: %s (%s)\n", maskAPIKey(creds.APIKey), creds.KeySource)
	return nil
}

func maskAPIKey(key string) string {
	if len(key) < 12 {
		return "***"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
