package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/smallbiznis/hotelops/internal/clock"
	"github.com/smallbiznis/hotelops/internal/config"
	"github.com/smallbiznis/hotelops/internal/migration"
	"github.com/smallbiznis/hotelops/internal/observability"
	"github.com/smallbiznis/hotelops/internal/report/repository"
	"github.com/smallbiznis/hotelops/internal/seed"
	"github.com/smallbiznis/hotelops/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const usage = `usage: seed <command> [flags]

commands:
  demo          insert demo rooms, guests and bookings
  admin         create the admin user, or reset its password with -reset
  check-admin   print the admin user for -email
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	if err := run(os.Args[1], os.Args[2:]); err != nil {
		fmt.Fprintf(os.Stderr, "seed %s: %v\n", os.Args[1], err)
		os.Exit(1)
	}
}

func run(command string, args []string) error {
	switch command {
	case "demo", "admin", "check-admin":
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", command)
	}

	fs := flag.NewFlagSet(command, flag.ExitOnError)
	bookings := fs.Int("bookings", 60, "number of demo bookings")
	randSeed := fs.Uint64("seed", uint64(time.Now().UnixNano()), "random seed for demo data")
	email := fs.String("email", seed.DefaultAdminEmail, "admin email")
	name := fs.String("name", seed.DefaultAdminName, "admin display name")
	password := fs.String("password", seed.DefaultAdminPassword, "admin password")
	reset := fs.Bool("reset", false, "reset the password of an existing admin")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var (
		seeder *seed.Seeder
		log    *zap.Logger
	)
	app := fx.New(
		fx.NopLogger,
		config.Module,
		observability.Module,
		db.Module,
		clock.Module,
		migration.Module,
		fx.Provide(repository.Provide),
		seed.Module,
		fx.Populate(&seeder, &log),
	)
	if err := app.Err(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	if err := app.Start(ctx); err != nil {
		return err
	}
	defer func() {
		if err := app.Stop(context.Background()); err != nil {
			log.Warn("seed shutdown failed", zap.Error(err))
		}
	}()

	switch command {
	case "demo":
		res, err := seeder.SeedDemo(ctx, seed.DemoOptions{Bookings: *bookings, Seed: *randSeed})
		if errors.Is(err, seed.ErrAlreadySeeded) {
			fmt.Println("demo data already present, nothing to do")
			return nil
		}
		if err != nil {
			return err
		}
		fmt.Printf("seeded %d users, %d rooms, %d bookings\n", res.Users, res.Rooms, res.Bookings)
	case "admin":
		res, err := seeder.EnsureAdmin(ctx, seed.AdminParams{
			Email:         *email,
			Name:          *name,
			Password:      *password,
			ResetPassword: *reset,
		})
		if err != nil {
			return err
		}
		switch {
		case res.Created:
			fmt.Printf("admin user created: %s\n", res.User.ID)
		case res.PasswordUpdated:
			fmt.Printf("admin password updated: %s\n", res.User.ID)
		default:
			fmt.Printf("admin user already exists: %s\n", res.User.ID)
		}
	case "check-admin":
		user, err := seeder.CheckAdmin(ctx, *email)
		if err != nil {
			return err
		}
		fmt.Printf("id: %s\nname: %s\nemail: %s\nis_admin: %t\n", user.ID, user.Name, user.Email, user.IsAdmin)
	}
	return nil
}
