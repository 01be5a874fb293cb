package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/example/reptrainer/internal/bot"
	"github.com/example/reptrainer/internal/config"
	"github.com/example/reptrainer/internal/database"
	"github.com/example/reptrainer/internal/excel"
	"github.com/example/reptrainer/internal/logger"
	"github.com/example/reptrainer/internal/repertoire"
	"github.com/example/reptrainer/internal/rules"
	"github.com/example/reptrainer/internal/scheduler"
	"github.com/example/reptrainer/pkg/models"
)

func main() {
	var (
		importPGN   = flag.String("import-pgn", "", "import a PGN file into a repertoire and exit")
		importSheet = flag.String("import-sheet", "", "import lines from an .xlsx or .csv file and exit")
		reviewPGN   = flag.String("review", "", "check the games of a PGN file against a repertoire and exit")
		repName     = flag.String("repertoire", "", "repertoire used by -import-pgn and -review")
		colorName   = flag.String("color", "white", "color of a repertoire created by -import-pgn")
		chapterName = flag.String("chapter", "", "chapter receiving every game of -import-pgn")
		replace     = flag.Bool("replace", false, "with -import-pgn, overwrite the chapters the file writes to and reset their statistics")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := database.Connect(cfg.DBDriver, cfg.DBDSN); err != nil {
		log.Fatal("failed to connect to database", "error", err)
	}
	defer database.Close()

	svc := repertoire.NewService(rules.NewOracle(), log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch {
	case *importPGN != "":
		err = runImportPGN(ctx, svc, *importPGN, repertoire.PGNImport{
			Repertoire: *repName,
			Chapter:    *chapterName,
			Replace:    *replace,
		}, *colorName)
	case *importSheet != "":
		err = runImportSheet(ctx, svc, *importSheet, *repName, *colorName)
	case *reviewPGN != "":
		err = runReview(ctx, svc, *reviewPGN, *repName)
	default:
		err = serve(ctx, cfg, svc, log)
	}
	if err != nil {
		log.Error("exiting", "error", err)
		log.Sync()
		os.Exit(1)
	}
}

// serve runs the bot and the reminder scheduler until a signal arrives
func serve(ctx context.Context, cfg *config.Config, svc *repertoire.Service, log *logger.Logger) error {
	botConfig := bot.DefaultConfig()
	botConfig.OwnerChatID = cfg.OwnerChatID
	botConfig.BatchSize = cfg.TrainingBatchSize

	b, err := bot.New(cfg.BotToken, svc, botConfig, log)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	if cfg.EnableScheduler {
		sched := scheduler.New(scheduler.Config{
			ChatID:    cfg.OwnerChatID,
			StartHour: cfg.ReminderStartHour,
			EndHour:   cfg.ReminderEndHour,
		}, svc, b, log.With("component", "scheduler"))
		if err := sched.Start(gctx); err != nil {
			return err
		}
		defer sched.Stop()
	}
	g.Go(func() error {
		return b.Start(gctx)
	})

	log.Info("bot started, press Ctrl+C to stop")
	err = g.Wait()

	// Give open sessions time to be recorded
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if stopErr := b.Stop(shutdownCtx); stopErr != nil {
		log.Error("error during shutdown", "error", stopErr)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("bot stopped successfully")
	return nil
}

func parseColor(name string) (models.Color, error) {
	color, ok := models.ParseColor(name)
	if !ok {
		return "", fmt.Errorf("invalid color %q", name)
	}
	return color, nil
}

func runImportPGN(ctx context.Context, svc *repertoire.Service, path string, opts repertoire.PGNImport, colorName string) error {
	if opts.Repertoire == "" {
		return errors.New("-import-pgn needs -repertoire")
	}
	color, err := parseColor(colorName)
	if err != nil {
		return err
	}
	opts.Color = color
	res, err := svc.ImportPGN(ctx, path, opts)
	if err != nil {
		return err
	}

	fmt.Printf("Imported %d of %d games into %s\n", res.Imported, res.Games, strings.Join(res.Chapters, ", "))
	for _, e := range res.Errors {
		fmt.Println("  ", e)
	}
	return nil
}

func runImportSheet(ctx context.Context, svc *repertoire.Service, path, rep, colorName string) error {
	importCfg := excel.DefaultImportConfig()
	importCfg.FilePath = path
	importCfg.DefaultRepertoire = rep
	if colorName != "" {
		color, err := parseColor(colorName)
		if err != nil {
			return err
		}
		importCfg.DefaultColor = color
	}

	res, err := svc.ImportSheet(ctx, importCfg)
	if err != nil {
		return err
	}
	fmt.Printf("Rows: %d, new lines: %d, existing: %d, skipped: %d\n",
		res.TotalProcessed, res.Created, res.Existing, res.Skipped)
	for _, e := range res.Errors {
		fmt.Println("  ", e)
	}
	return nil
}

func runReview(ctx context.Context, svc *repertoire.Service, path, repRef string) error {
	if repRef == "" {
		return errors.New("-review needs -repertoire")
	}
	rep, err := svc.FindRepertoire(ctx, repRef)
	if err != nil {
		return fmt.Errorf("repertoire %q: %w", repRef, err)
	}
	reports, err := svc.ReviewPGN(ctx, rep, path)
	if err != nil {
		return err
	}

	for _, r := range reports {
		fmt.Printf("Game %d: %s - %s, %d of %d plies in book\n",
			r.Index, r.White, r.Black, r.Review.Matched(), len(r.Review.Plies))
		for _, i := range r.Review.KeyMoves {
			ply := r.Review.Plies[i]
			number := fmt.Sprintf("%d.", ply.MoveNumber)
			if ply.IsBlack {
				number += ".."
			}
			fmt.Printf("  %s %s: %s", number, ply.SAN, ply.KeyMove.Reason)
			if len(ply.Match.RepertoireMoves) > 0 {
				fmt.Printf(" (book: %s)", strings.Join(ply.Match.RepertoireMoves, ", "))
			}
			fmt.Println()
		}
		if r.Err != nil {
			fmt.Println("  stopped:", r.Err)
		}
	}
	return nil
}
