package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-extras/cobraflags"
	"github.com/spf13/cobra"

	"github.com/sakif/yatube/internal/auth"
)

const (
	urlFlag   = "url"
	tokenFlag = "token"
)

var flushFlags = map[string]cobraflags.Flag{
	urlFlag: &cobraflags.StringFlag{
		Name:  urlFlag,
		Value: "",
		Usage: "Base URL of the running server (default http://localhost:<port>)",
	},
	tokenFlag: &cobraflags.StringFlag{
		Name:  tokenFlag,
		Value: "",
		Usage: "Admin token whose bcrypt hash is configured as admin_token_hash",
	},
}

// newFlushCacheCommand asks a running server to drop its cached global
// timeline. The cache lives in the server process, so this goes over HTTP.
func newFlushCacheCommand(configFile *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "flush-cache",
		Short: "Drop the cached global timeline on a running server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := loadConfig(*configFile)
			if err != nil {
				return err
			}

			base := flushFlags[urlFlag].GetString()
			if base == "" {
				base = fmt.Sprintf("http://localhost:%d", cfg.Port)
			}
			token := flushFlags[tokenFlag].GetString()
			if token == "" {
				return fmt.Errorf("--%s is required", tokenFlag)
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()

			if err := flushCache(ctx, http.DefaultClient, base, token); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "cache flushed")
			return nil
		},
	}
	cobraflags.RegisterMap(cmd, flushFlags)
	return cmd
}

func flushCache(ctx context.Context, client *http.Client, base, token string) error {
	endpoint := strings.TrimRight(base, "/") + "/admin/cache/flush"

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return fmt.Errorf("building flush request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("calling %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("flush failed: %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
	return nil
}

// newHashTokenCommand prints the bcrypt hash to put in admin_token_hash.
// The plain token is never stored by the server.
func newHashTokenCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-token TOKEN",
		Short: "Print the bcrypt hash of an admin token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := auth.NewSecretHasher().Hash(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}
