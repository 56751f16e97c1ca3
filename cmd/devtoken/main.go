// File: cmd/devtoken/main.go
package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/iyunix/go-voicechat/internal/auth"
	"github.com/iyunix/go-voicechat/internal/config"
)

var ttl time.Duration

var rootCmd = &cobra.Command{
	Use:   "devtoken [user-id]",
	Short: "Mint a bearer token for local development",
	Long: `devtoken signs a token for the given user id with JWT_SECRET_KEY, so the
API can be exercised without the companion auth service.

Example:
  curl -H "Authorization: Bearer $(devtoken 1)" localhost:8080/api/chats`,
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil || userID == 0 {
			return fmt.Errorf("invalid user id %q", args[0])
		}

		cfg, err := config.New()
		if err != nil {
			return err
		}
		if cfg.JWTSecretKey == "" {
			return errors.New("JWT_SECRET_KEY is not set")
		}

		token, err := auth.GenerateJWT(uint(userID), []byte(cfg.JWTSecretKey), ttl)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().DurationVar(&ttl, "ttl", auth.DefaultTokenTTL, "Token lifetime")
}
