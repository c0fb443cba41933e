package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
	"github.com/mmdatafocus/gem_ledger/config"
	"github.com/mmdatafocus/gem_ledger/models"
	"github.com/mmdatafocus/gem_ledger/rates"
	"github.com/sirupsen/logrus"
)

func connect() {
	config.ConnectDatabaseWithRetry()
	if config.StringFromEnv("REDIS_ADDRESS", "") != "" {
		config.ConnectRedisWithRetry()
	}
}

func fail(command string, err error) subcommands.ExitStatus {
	config.GetLogger().WithFields(logrus.Fields{"command": command}).Error(err.Error())
	fmt.Fprintln(os.Stderr, err)
	return subcommands.ExitFailure
}

type migrateCmd struct{}

func (*migrateCmd) Name() string     { return "migrate" }
func (*migrateCmd) Synopsis() string { return "create or update every table" }
func (*migrateCmd) Usage() string {
	return `gemctl migrate

  Runs AutoMigrate for all models. Use it as a job when the server runs with
  SKIP_MIGRATIONS=true.
`
}
func (*migrateCmd) SetFlags(*flag.FlagSet) {}

func (c *migrateCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	config.ConnectDatabaseWithRetry()
	if err := models.Migrate(); err != nil {
		return fail(c.Name(), err)
	}
	fmt.Println("migrated")
	return subcommands.ExitSuccess
}

type seedCmd struct {
	as string
}

func (*seedCmd) Name() string     { return "seed" }
func (*seedCmd) Synopsis() string { return "load the starter inventory and payments" }
func (*seedCmd) Usage() string {
	return `gemctl seed [-as <email>]

  Inserts the bundled seed inventory with fresh lot numbers, plus the seed
  payments. With -as, the rows and their activity entries are attributed to
  that profile.
`
}

func (c *seedCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.as, "as", "", "email of the profile the seed rows are attributed to")
}

func (c *seedCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	connect()
	var actor models.Actor
	if c.as != "" {
		profile, err := models.GetProfileByEmail(ctx, c.as)
		if err != nil {
			return fail(c.Name(), fmt.Errorf("profile %s: %w", c.as, err))
		}
		actor = profile.Actor()
	}
	result, err := models.SeedDatabase(ctx, actor)
	if err != nil {
		return fail(c.Name(), err)
	}
	fmt.Printf("seeded %d gems and %d payments\n", result.Inventory, result.Payments)
	return subcommands.ExitSuccess
}

type resetCmd struct {
	yes bool
}

func (*resetCmd) Name() string     { return "reset" }
func (*resetCmd) Synopsis() string { return "delete all inventory, its history and all transactions" }
func (*resetCmd) Usage() string {
	return `gemctl reset -yes

  Profiles, capital and rates are kept. Lot numbers restart at 1.
`
}

func (c *resetCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.yes, "yes", false, "confirm the reset")
}

func (c *resetCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if !c.yes {
		fmt.Fprintln(os.Stderr, "refusing to reset without -yes")
		return subcommands.ExitUsageError
	}
	connect()
	if err := models.ResetDatabase(ctx); err != nil {
		return fail(c.Name(), err)
	}
	fmt.Println("inventory and transactions cleared")
	return subcommands.ExitSuccess
}

type createAdminCmd struct {
	email    string
	password string
	name     string
	role     string
}

func (*createAdminCmd) Name() string     { return "create-admin" }
func (*createAdminCmd) Synopsis() string { return "create a profile without going through sign-up" }
func (*createAdminCmd) Usage() string {
	return `gemctl create-admin -email <email> -password <password> [-name <full name>] [-role admin|viewer]
`
}

func (c *createAdminCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.email, "email", "", "login email")
	f.StringVar(&c.password, "password", "", "initial password (min 6 characters)")
	f.StringVar(&c.name, "name", "", "full name")
	f.StringVar(&c.role, "role", string(models.UserRoleAdmin), "admin or viewer")
}

func (c *createAdminCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	config.ConnectDatabaseWithRetry()
	profile, err := models.CreateProfileWithRole(ctx, &models.NewProfile{
		Email:    c.email,
		Password: c.password,
		FullName: c.name,
	}, models.UserRole(c.role))
	if err != nil {
		return fail(c.Name(), err)
	}
	fmt.Printf("created %s (%s) id=%s\n", profile.Email, profile.Role, profile.ID)
	return subcommands.ExitSuccess
}

type setRoleCmd struct {
	email string
	role  string
}

func (*setRoleCmd) Name() string     { return "set-role" }
func (*setRoleCmd) Synopsis() string { return "change a profile's role and sign it out everywhere" }
func (*setRoleCmd) Usage() string {
	return `gemctl set-role -email <email> -role admin|viewer
`
}

func (c *setRoleCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.email, "email", "", "profile email")
	f.StringVar(&c.role, "role", "", "admin or viewer")
}

func (c *setRoleCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	connect()
	profile, err := models.SetRoleAsOperator(ctx, c.email, models.UserRole(c.role))
	if err != nil {
		return fail(c.Name(), err)
	}
	fmt.Printf("%s is now %s\n", profile.Email, profile.Role)
	return subcommands.ExitSuccess
}

type rateCmd struct{}

func (*rateCmd) Name() string     { return "rate" }
func (*rateCmd) Synopsis() string { return "fetch and store the current USD to LKR rate" }
func (*rateCmd) Usage() string {
	return `gemctl rate

  Tries the live rate API once. On failure prints the latest stored rate
  (marked stale) or the default.
`
}
func (*rateCmd) SetFlags(*flag.FlagSet) {}

func (c *rateCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	config.ConnectDatabaseWithRetry()
	quote := models.ResolveRate(ctx, rates.NewFetcher())
	stale := ""
	if quote.Stale {
		stale = " (stale)"
	}
	fmt.Printf("1 USD = %s LKR [%s]%s\n", quote.Rate.String(), quote.Source, stale)
	return subcommands.ExitSuccess
}
