// Command moneymind-token signs a bearer token for local development and
// scripted access. It reads JWT_SECRET and JWT_ISSUER like the server does.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"moneymind/internal/auth"
	"moneymind/internal/cli"
)

func main() {
	user := flag.String("user", "", "user id to put in the token subject")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	cli.LoadEnvFile()
	logger := cli.SetupLogger("warn")

	if strings.TrimSpace(*user) == "" {
		fmt.Fprintln(os.Stderr, "usage: moneymind-token -user <id> [-ttl 24h]")
		os.Exit(2)
	}
	if *ttl <= 0 {
		logger.Error("Token lifetime must be positive", "ttl", *ttl)
		os.Exit(2)
	}

	cfg := cli.LoadAndValidateConfig(logger)
	verifier, err := auth.NewVerifier(cfg.JWTSecret, cfg.JWTIssuer)
	if err != nil {
		logger.Error("Failed to build token signer", "error", err)
		os.Exit(1)
	}

	token, err := verifier.Sign(strings.TrimSpace(*user), *ttl)
	if err != nil {
		logger.Error("Failed to sign token", "error", err)
		os.Exit(1)
	}
	fmt.Println(token)
}
