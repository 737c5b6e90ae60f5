package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"food-budget/internal/infrastructure/config"
	"food-budget/internal/infrastructure/store"
	"food-budget/internal/pkg/common"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const usage = `usage: manage <command> [flags]

commands:
  migrate   create or update tables
  status    show tables and row counts
  reset     drop and recreate all tables (requires -yes)
  seed      create a demo user with sample ingredients and a recipe
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := common.InitLogger(cfg.LogLevel, cfg.LogFile); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer common.Sync()

	db, err := store.Open(cfg.Database, cfg.App.Debug)
	if err != nil {
		common.LogFatal("Failed to open database", zap.Error(err))
	}
	defer store.Close(db)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	cmd, args := os.Args[1], os.Args[2:]
	switch cmd {
	case "migrate":
		err = runMigrate(db)
	case "status":
		err = runStatus(ctx, db)
	case "reset":
		err = runReset(db, args)
	case "seed":
		err = runSeed(ctx, db, cfg, args)
	case "help", "-h", "--help":
		fmt.Print(usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", cmd, usage)
		os.Exit(2)
	}
	if err != nil {
		common.LogError("指令失敗", zap.String("command", cmd), zap.Error(err))
		common.Sync()
		os.Exit(1)
	}
}

func runMigrate(db *gorm.DB) error {
	if err := store.Migrate(db); err != nil {
		return err
	}
	common.LogInfo("資料表遷移完成")
	return nil
}

func runStatus(ctx context.Context, db *gorm.DB) error {
	status, err := store.Status(ctx, db)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TABLE\tEXISTS\tROWS")
	for _, st := range status {
		fmt.Fprintf(w, "%s\t%t\t%d\n", st.Table, st.Exists, st.Rows)
	}
	return w.Flush()
}

func runReset(db *gorm.DB, args []string) error {
	fs := flag.NewFlagSet("reset", flag.ExitOnError)
	yes := fs.Bool("yes", false, "confirm dropping every table")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if !*yes {
		return fmt.Errorf("reset drops all data; rerun with -yes to confirm")
	}
	if err := store.Reset(db); err != nil {
		return err
	}
	common.LogWarn("所有資料表已重建")
	return nil
}

func runSeed(ctx context.Context, db *gorm.DB, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("seed", flag.ExitOnError)
	opts := seedOptions{}
	fs.StringVar(&opts.Username, "username", "demo", "demo account username")
	fs.StringVar(&opts.Email, "email", "demo@example.com", "demo account email")
	fs.StringVar(&opts.Password, "password", "demo-password", "demo account password")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if err := store.Migrate(db); err != nil {
		return err
	}
	res, err := seed(ctx, db, cfg.Auth, opts)
	if err != nil {
		return err
	}
	if res.Skipped {
		common.LogInfo("示範帳號已存在，略過", zap.String("username", opts.Username))
		return nil
	}
	common.LogInfo("示範資料已建立",
		zap.String("username", opts.Username),
		zap.Int("ingredients", res.Ingredients),
		zap.Uint("recipe_id", res.RecipeID),
	)
	return nil
}
