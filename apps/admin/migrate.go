package main

import "github.com/shulehq/shule/storage/database"

func (cli *commandLine) migrate() error {
	return database.Migrate(cli.db)
}
