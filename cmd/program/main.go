package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"cryptonary/referral-service/internal/config"
	"cryptonary/referral-service/internal/repository"
	"cryptonary/referral-service/internal/service"
	"cryptonary/referral-service/pkg/db"
	"cryptonary/referral-service/pkg/logger"
)

// Management command for referral programs:
//
//	program create -name "Launch" -rate 20.00 -min-withdrawal 2500 [-activate]
//	program activate -id 3
func main() {
	log := logger.NewLogger("referral-program-cli")

	if err := godotenv.Load(); err != nil {
		log.Debugf(".env file not found: %v", err)
	}

	if len(os.Args) < 2 {
		usage()
	}

	cfg := config.LoadConfig()
	conn, err := db.NewConnection(db.Config{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		Database:        cfg.Database.Database,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer conn.Close()

	programService := service.NewProgramService(repository.NewProgramRepository(conn.DB), log)
	ctx := context.Background()

	switch os.Args[1] {
	case "create":
		fs := flag.NewFlagSet("create", flag.ExitOnError)
		name := fs.String("name", "", "program name")
		rate := fs.String("rate", "", "commission rate percentage, e.g. 20.00")
		minWithdrawal := fs.Int64("min-withdrawal", 0, "minimum withdrawal balance in minor units")
		activate := fs.Bool("activate", false, "activate the program after creating it")
		fs.Parse(os.Args[2:])

		if *name == "" || *rate == "" {
			fs.Usage()
			os.Exit(2)
		}
		commissionRate, err := decimal.NewFromString(*rate)
		if err != nil {
			log.Fatalf("Invalid rate %q: %v", *rate, err)
		}

		program, err := programService.CreateProgram(ctx, *name, commissionRate, *minWithdrawal, *activate)
		if err != nil {
			log.Fatalf("Failed to create program: %v", err)
		}
		fmt.Printf("created program %d (%s, %s%%, active=%t)\n",
			program.ID, program.Name, program.CommissionRate.StringFixed(2), program.IsActive)

	case "activate":
		fs := flag.NewFlagSet("activate", flag.ExitOnError)
		id := fs.Uint64("id", 0, "program id")
		fs.Parse(os.Args[2:])

		if *id == 0 {
			fs.Usage()
			os.Exit(2)
		}
		if err := programService.ActivateProgram(ctx, *id); err != nil {
			log.Fatalf("Failed to activate program: %v", err)
		}
		fmt.Printf("activated program %d\n", *id)

	default:
		usage()
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: program <create|activate> [flags]")
	os.Exit(2)
}
