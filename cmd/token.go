package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/Alturino/storefront/internal"
	"github.com/Alturino/storefront/internal/config"
)

func runDevToken(w io.Writer, configName string, userID string, ttl time.Duration) error {
	cfg, err := config.Load(configName, "./env")
	if err != nil {
		return fmt.Errorf("failed loading config with error=%w", err)
	}
	return printDevToken(w, cfg.Application.SecretKey, userID, ttl)
}

// printDevToken writes a signed bearer token for userID, for calling the APIs locally.
func printDevToken(w io.Writer, secretKey string, userID string, ttl time.Duration) error {
	id := uuid.New()
	if userID != "" {
		var err error
		if id, err = uuid.Parse(userID); err != nil {
			return fmt.Errorf("failed parsing user id with error=%w", err)
		}
	}
	token, err := internal.SignToken(secretKey, id, ttl)
	if err != nil {
		return fmt.Errorf("failed signing token with error=%w", err)
	}
	_, err = fmt.Fprintln(w, token)
	return err
}
