// gemctl runs operator tasks against the gem ledger database.
//
// Usage (from backend directory):
//
//	DB_DRIVER=mysql DB_USER=... DB_PASSWORD=... DB_HOST=... DB_NAME=... go run ./cmd/gemctl migrate
//	go run ./cmd/gemctl create-admin -email owner@example.com -password ...
//	go run ./cmd/gemctl seed -as owner@example.com
//
// Redis is only used when REDIS_ADDRESS is set, so the lot counter and cached
// sessions stay in step with a running server.
package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/google/subcommands"
)

func main() {
	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")

	commander.Register(&migrateCmd{}, "database")
	commander.Register(&seedCmd{}, "database")
	commander.Register(&resetCmd{}, "database")
	commander.Register(&createAdminCmd{}, "profiles")
	commander.Register(&setRoleCmd{}, "profiles")
	commander.Register(&rateCmd{}, "rates")

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}
