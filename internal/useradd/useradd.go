// Package useradd provisions accounts from the command line against the
// same store the auth server uses.
package useradd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/dmitrijs2005/cmsauth/internal/clockx"
	"github.com/dmitrijs2005/cmsauth/internal/cryptox"
	"github.com/dmitrijs2005/cmsauth/internal/flagx"
	"github.com/dmitrijs2005/cmsauth/internal/server/config"
	"github.com/dmitrijs2005/cmsauth/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/cmsauth/internal/server/services"
)

type Options struct {
	UserName    string
	DisplayName string
	UserTypes   string
}

func parseOptions(args []string) (Options, error) {
	var o Options

	fs := flag.NewFlagSet("useradd", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&o.UserName, "login", "", "user name")
	fs.StringVar(&o.DisplayName, "name", "", "display name")
	fs.StringVar(&o.UserTypes, "types", "", "comma-separated user types, e.g. manager")

	if err := fs.Parse(flagx.FilterArgs(args, []string{"-login", "-name", "-types"})); err != nil {
		return o, err
	}
	if o.UserName == "" {
		return o, errors.New("-login is required")
	}
	return o, nil
}

// Run creates the account described by args in the store named by cfg,
// prompting on out for the password.
func Run(ctx context.Context, cfg *config.Config, args []string, out io.Writer) error {
	opts, err := parseOptions(args)
	if err != nil {
		return err
	}

	params := cfg.Argon2Params()
	if err := params.Validate(); err != nil {
		return err
	}

	repos, err := repomanager.New(ctx, cfg.DatabaseDSN)
	if err != nil {
		return fmt.Errorf("db init error: %w", err)
	}
	defer repos.Close()

	if err := repos.RunMigrations(ctx); err != nil {
		return fmt.Errorf("migrations error: %w", err)
	}

	password, err := GetPassword(out)
	if err != nil {
		return err
	}

	accounts := services.NewAccountService(repos.Users(), cryptox.NewHasher(params), clockx.System{})
	u, err := accounts.Create(ctx, services.NewAccount{
		UserName:    opts.UserName,
		DisplayName: opts.DisplayName,
		UserTypes:   opts.UserTypes,
		Password:    password,
	})
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(out, "created user %s (%s)\n", u.UserName, u.ID)
	return err
}
