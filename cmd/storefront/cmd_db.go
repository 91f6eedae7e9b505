package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/shashiranjanraj/storefront/app/repositories"
	"github.com/shashiranjanraj/storefront/app/services"
	"github.com/shashiranjanraj/storefront/config"
	"github.com/shashiranjanraj/storefront/database/migrations"
	"github.com/shashiranjanraj/storefront/database/seeders"
	"github.com/shashiranjanraj/storefront/pkg/database"
	"github.com/shashiranjanraj/storefront/pkg/migration"
)

func migrator() (*migration.Runner, error) {
	db, err := database.Connect()
	if err != nil {
		return nil, err
	}
	return migration.New(db, migrations.All()), nil
}

// storefront migrate
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run all pending database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := migrator()
		if err != nil {
			return err
		}
		applied, err := r.Up(cmd.Context())
		for _, name := range applied {
			fmt.Println("  migrated:", name)
		}
		if err == nil && len(applied) == 0 {
			fmt.Println("Nothing to migrate.")
		}
		return err
	},
}

// storefront migrate:rollback
var migrateRollbackCmd = &cobra.Command{
	Use:   "migrate:rollback",
	Short: "Rollback the last batch of migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := migrator()
		if err != nil {
			return err
		}
		reverted, err := r.Rollback(cmd.Context())
		for _, name := range reverted {
			fmt.Println("  rolled back:", name)
		}
		if err == nil && len(reverted) == 0 {
			fmt.Println("Nothing to rollback.")
		}
		return err
	},
}

// storefront migrate:status
var migrateStatusCmd = &cobra.Command{
	Use:   "migrate:status",
	Short: "Show the status of each migration",
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := migrator()
		if err != nil {
			return err
		}
		statuses, err := r.Status(cmd.Context())
		if err != nil {
			return err
		}
		for _, s := range statuses {
			state := "pending"
			if s.Ran {
				state = fmt.Sprintf("ran (batch %d)", s.Batch)
			}
			fmt.Printf("  %-55s %s\n", s.Name, state)
		}
		return nil
	},
}

// storefront db:seed
var seedCmd = &cobra.Command{
	Use:   "db:seed",
	Short: "Seed the demo catalog and the admin account",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := database.Connect()
		if err != nil {
			return err
		}
		fmt.Println("Running seeders…")
		return seeders.RunAll(cmd.Context(), db, os.Stdout)
	},
}

var adminPasswordFlag string

// storefront user:admin <email>
var userAdminCmd = &cobra.Command{
	Use:   "user:admin <email>",
	Short: "Grant the admin flag to a user, creating it when --password is given",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := database.Connect()
		if err != nil {
			return err
		}
		return promote(cmd, db, args[0], adminPasswordFlag)
	},
}

func promote(cmd *cobra.Command, db *gorm.DB, email, password string) error {
	users := services.NewUserService(repositories.NewUserRepository(db))
	u, err := users.PromoteAdmin(cmd.Context(), email, password)
	if err != nil {
		return err
	}
	fmt.Printf("%s is now an administrator (id %d)\n", u.Email, u.ID)
	return nil
}

func init() {
	userAdminCmd.Flags().StringVarP(&adminPasswordFlag, "password", "p", config.AdminPassword(), "password for a new account")
}
