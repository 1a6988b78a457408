// Command tokengen issues a signed admin token using the server's JWT secret.
//
//	tokengen -user <uuid> [-ttl 24h]
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"eventpublisher/config"
	"eventpublisher/internal/adapters/auth"
	"eventpublisher/internal/domain"

	"github.com/google/uuid"
)

func main() {
	userID := flag.String("user", "", "subject of the token (user UUID)")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	if _, err := uuid.Parse(*userID); err != nil {
		fmt.Fprintln(os.Stderr, "tokengen: -user must be a UUID")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	if cfg.Auth.JWTSecret == "" {
		slog.Error("JWT_SECRET is not set")
		os.Exit(1)
	}

	var issuer domain.TokenIssuer = auth.NewJWT(cfg.Auth.JWTSecret)
	token, err := issuer.Issue(*userID, []string{domain.RoleAdmin}, *ttl)
	if err != nil {
		slog.Error("failed to issue token", "err", err)
		os.Exit(1)
	}
	fmt.Println(token)
}
