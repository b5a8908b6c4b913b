package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/iudanet/gophcollab/internal/client/iocli"
	"github.com/iudanet/gophcollab/internal/config"
	"github.com/iudanet/gophcollab/internal/models"
	"github.com/iudanet/gophcollab/internal/server/handlers"
	"github.com/iudanet/gophcollab/internal/validation"
)

// newGrantCmd выпускает grant так же, как это делает gatekeeper.
// Нужен для локальной разработки и проверки развернутого сервера.
func newGrantCmd() *cobra.Command {
	v := config.New()

	var (
		identity models.Identity
		ttl      time.Duration
	)

	cmd := &cobra.Command{
		Use:   "grant KEY",
		Short: "Issue a gatekeeper grant for a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := cmd.Flags().GetString("config")
			if err != nil {
				return fmt.Errorf("failed to read config flag: %w", err)
			}
			cfg, err := config.Load(v, file)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			return runGrant(iocli.NewStdio(), cfg.Gatekeeper, args[0], identity, ttl)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&identity.UserID, "user-id", "", "user id (grant subject)")
	flags.StringVar(&identity.UserName, "name", "", "display name")
	flags.StringVar(&identity.UserImage, "image", "", "avatar URL")
	flags.DurationVar(&ttl, "ttl", 0, "grant lifetime (default gatekeeper.grant_ttl)")

	return cmd
}

func runGrant(term iocli.IO, gatekeeper config.GatekeeperConfig, rawKey string, identity models.Identity, ttl time.Duration) error {
	if err := validation.ValidateDocumentKey(rawKey); err != nil {
		return fmt.Errorf("invalid document key: %w", err)
	}

	secret := gatekeeper.Secret
	if secret == "" {
		// секрет не в конфиге: спрашиваем только на терминале
		s, err := term.ReadPassword("Gatekeeper secret: ")
		if errors.Is(err, iocli.ErrNotTerminal) {
			return errors.New("gatekeeper.secret is not set (use GOPHCOLLAB_GATEKEEPER_SECRET)")
		}
		if err != nil {
			return fmt.Errorf("failed to read secret: %w", err)
		}
		secret = s
	}
	if secret == "" {
		return errors.New("gatekeeper secret is empty")
	}

	cfg := handlers.GrantConfig{Secret: []byte(secret), TTL: gatekeeper.GrantTTL}
	if ttl > 0 {
		cfg.TTL = ttl
	}

	token, err := handlers.GenerateGrant(cfg, models.DocumentKey(rawKey), identity)
	if err != nil {
		return err
	}

	term.Println(token)
	return nil
}
