package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"provisiond/internal/app"
	"provisiond/internal/config"
	"provisiond/internal/domain"
	"provisiond/internal/infra/db"
	"provisiond/internal/infra/logging"
	"provisiond/internal/infra/policyopa"
	"provisiond/internal/usecase"

	"github.com/urfave/cli/v2"
)

var (
	logJSONFlag = &cli.BoolFlag{
		Name:  "log-json",
		Value: false,
		Usage: "log in JSON format",
	}
	logLevelFlag = &cli.StringFlag{
		Name:  "log-level",
		Value: "warn",
		Usage: "minimum log level",
	}
	actorFlag = &cli.StringFlag{
		Name:    "actor",
		Value:   "provisionctl",
		EnvVars: []string{"PROVISIONCTL_ACTOR"},
		Usage:   "actor recorded in audit entries",
	}
)

func main() {
	cliApp := &cli.App{
		Name:  "provisionctl",
		Usage: "Operator commands for the provisioning service",
		Flags: []cli.Flag{logJSONFlag, logLevelFlag},
		Commands: []*cli.Command{
			{
				Name:   "migrate",
				Usage:  "Create or update the database schema",
				Action: runMigrate,
			},
			{
				Name:  "rotate-secret",
				Usage: "Generate a new registration secret for a community type",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "type", Required: true, Usage: "community type (cc, ug, cb, hero)"},
					actorFlag,
				},
				Action: runRotateSecret,
			},
			{
				Name:   "list-secrets",
				Usage:  "Show which community types have a secret configured",
				Action: runListSecrets,
			},
			{
				Name:  "delete-account",
				Usage: "Deprovision an account by id or email",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "id", Required: true, Usage: "account id or email address"},
					actorFlag,
				},
				Action: runDeleteAccount,
			},
		},
	}
	if err := cliApp.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func setup(cCtx *cli.Context) (config.Config, *slog.Logger, error) {
	logger := logging.Setup(logging.Options{
		Level:   cCtx.String(logLevelFlag.Name),
		JSON:    cCtx.Bool(logJSONFlag.Name),
		Service: "provisionctl",
	})
	cfg, err := config.FromEnv()
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, logger, nil
}

// openSecrets wires only what secret administration needs, so it works
// without identity provider credentials.
func openSecrets(cCtx *cli.Context) (*usecase.SecretVerifier, *db.Store, error) {
	cfg, logger, err := setup(cCtx)
	if err != nil {
		return nil, nil, err
	}
	store, err := db.NewStore(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	authorizer, err := policyopa.NewAuthorizer(cCtx.Context, cfg.AdminEmails, cfg.AdminPolicyPath)
	if err != nil {
		_ = store.Close()
		return nil, nil, err
	}
	audit := usecase.NewAuditEmitter(store.AuditEntries(), nil, logger)
	secrets := usecase.NewSecretVerifier(store.Secrets(), audit, cfg.Communities, cfg.SecretHashCost)
	secrets.Authorizer = authorizer
	return secrets, store, nil
}

func runMigrate(cCtx *cli.Context) error {
	cfg, logger, err := setup(cCtx)
	if err != nil {
		return err
	}
	store, err := db.NewStore(cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()
	if err := store.Migrate(cCtx.Context); err != nil {
		return err
	}
	fmt.Println("schema up to date")
	return nil
}

func runRotateSecret(cCtx *cli.Context) error {
	secrets, store, err := openSecrets(cCtx)
	if err != nil {
		return err
	}
	defer store.Close()
	t := domain.CommunityType(cCtx.String("type"))
	actor := cCtx.String(actorFlag.Name)
	plaintext, err := secrets.Rotate(cCtx.Context, usecase.RotateSecretRequest{
		Type:          t,
		Principal:     domain.Principal{Subject: actor, Admin: true},
		Actor:         actor,
		SourceAddress: "cli",
	})
	if err != nil {
		return err
	}
	fmt.Printf("new %s secret (shown once): %s\n", t, plaintext)
	return nil
}

func runListSecrets(cCtx *cli.Context) error {
	secrets, store, err := openSecrets(cCtx)
	if err != nil {
		return err
	}
	defer store.Close()
	statuses, err := secrets.Status(cCtx.Context)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TYPE\tLABEL\tCONFIGURED\tUPDATED")
	for _, s := range statuses {
		updated := "-"
		if s.UpdatedAt != nil {
			updated = s.UpdatedAt.UTC().Format(time.RFC3339)
		}
		fmt.Fprintf(w, "%s\t%s\t%t\t%s\n", s.CommunityType, s.Label, s.Configured, updated)
	}
	return w.Flush()
}

func runDeleteAccount(cCtx *cli.Context) error {
	cfg, logger, err := setup(cCtx)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(cCtx.Context, 2*time.Minute)
	defer cancel()
	a, err := app.Build(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	actor := cCtx.String(actorFlag.Name)
	result, err := a.Deprovisioner.Deprovision(ctx, usecase.DeprovisionRequest{
		Identifier:    cCtx.String("id"),
		Principal:     domain.Principal{Subject: actor, Admin: true},
		SourceAddress: "cli",
	})
	if err != nil {
		return err
	}
	fmt.Printf("deleted %s (%s), remote absent: %t\n", result.Account.Email, result.Account.ID, result.RemoteAbsent)
	return nil
}
