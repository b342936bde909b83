// issue-token mints a bearer token for local development. Production tokens are
// issued by the identity provider with the same secret and claims.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/placementops/ticketing/internal/auth"
	"github.com/placementops/ticketing/internal/config"
	"github.com/placementops/ticketing/internal/domain"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	var userID, role string
	var ttlMinutes int

	flagSet := pflag.NewFlagSet("issue-token", pflag.ContinueOnError)
	flagSet.StringVar(&userID, "user", "", "user id to put in the token subject")
	flagSet.StringVar(&role, "role", "", "role of the user (must match the stored user)")
	flagSet.IntVar(&ttlMinutes, "ttl", 0, "token lifetime in minutes (default: AUTH_ACCESS_TOKEN_TTL_MINUTES)")
	if err := flagSet.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}

	if userID == "" {
		return fmt.Errorf("--user is required")
	}
	if !domain.Role(role).Valid() {
		return fmt.Errorf("--role %q is not a known role", role)
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if ttlMinutes <= 0 {
		ttlMinutes = cfg.Auth.AccessTokenTTLMinutes
	}

	token, expiresAt, err := auth.NewTokenManager(cfg.Auth.JWTSecret, ttlMinutes).GenerateToken(userID, domain.Role(role))
	if err != nil {
		return err
	}
	fmt.Println(token)
	fmt.Fprintf(os.Stderr, "expires at %s\n", expiresAt.Format(time.RFC3339))
	return nil
}
