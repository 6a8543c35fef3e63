package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/sirupsen/logrus"

	"vblocks.ai/internal/bot"
	"vblocks.ai/internal/build/command"
	"vblocks.ai/internal/build/grid"
	"vblocks.ai/internal/build/occupancy"
	"vblocks.ai/internal/build/placement"
	"vblocks.ai/internal/build/session"
	"vblocks.ai/internal/catalogs"
	"vblocks.ai/internal/logging"
	persistlog "vblocks.ai/internal/persistence/log"
	"vblocks.ai/internal/transport/ws"
	"vblocks.ai/internal/tuning"
)

func main() {
	var (
		url        = flag.String("url", "ws://localhost:8080/v1/ws", "world ws url")
		configDir  = flag.String("configs", "./configs", "config directory")
		dataDir    = flag.String("data", "./data", "runtime data directory (audit trail and index)")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		disableDB  = flag.Bool("disable_db", false, "disable the audit index (JSONL audit files are still written)")
		user       = flag.String("user", os.Getenv("VB_BOT_USER"), "login user (or set VB_BOT_USER)")
		password   = flag.String("password", os.Getenv("VB_BOT_PASSWORD"), "login password (or set VB_BOT_PASSWORD)")
	)
	flag.Parse()

	logger := logging.New("bot")

	cats, err := catalogs.Load(*configDir)
	if err != nil {
		logger.Fatalf("load catalogs: %v", err)
	}
	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Fatalf("load tuning: %v", err)
		}
		logger.Warnf("tuning not found (%s); using defaults", tp)
		tune = tuning.Defaults()
	}
	g, err := grid.New(tune.CellSize)
	if err != nil {
		logger.Fatalf("grid: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dialCtx, cancelDial := context.WithTimeout(ctx, 10*time.Second)
	client, err := ws.Dial(dialCtx, *url, logger.WithField("component", "ws"))
	if err != nil {
		cancelDial()
		logger.Fatalf("connect: %v", err)
	}
	welcome, err := client.Login(dialCtx, ws.LoginConfig{
		User:     strings.TrimSpace(*user),
		Password: *password,
		BotName:  tune.BotName,
		World:    tune.World,
	})
	cancelDial()
	if err != nil {
		logger.Fatalf("login to %s: %v", tune.World, err)
	}
	defer client.Close()
	logger.WithFields(logrus.Fields{"world": welcome.World, "user_id": welcome.UserID, "session": welcome.SessionID}).Info("logged in")

	audit := placement.MultiAudit{}
	fileAudit := persistlog.NewAuditLogger(*dataDir)
	defer fileAudit.Close()
	audit = append(audit, fileAudit)

	idx, err := openRuntimeIndex(*dataDir, tune.World, *disableDB, logger.WithField("component", "index"))
	if err != nil {
		logger.Fatalf("open index backend: %v", err)
	}
	if idx != nil {
		defer idx.Close()
		if err := idx.UpsertCatalogs(cats, tune); err != nil {
			logger.WithError(err).Warn("index backend: upsert catalogs")
		}
		audit = append(audit, idx)
	}

	index := occupancy.New()
	sessions := session.NewStore()
	engine := placement.New(placement.Config{
		Model:       tune.Model,
		Tag:         tune.ObjectTag,
		CallTimeout: tune.CallTimeout(),
		Tolerance:   tune.Tolerance,
	}, g, index, sessions, client, logger.WithField("component", "placement"))
	engine.SetAuditLogger(audit)
	interp := command.New(sessions, cats.Textures, client, logger.WithField("component", "command"))

	spawn := mgl64.Vec3(tune.Spawn)
	moveCtx, cancelMove := context.WithTimeout(ctx, tune.CallTimeout())
	if err := client.MoveTo(moveCtx, spawn); err != nil {
		logger.WithError(err).Warn("move to spawn failed")
	}
	cancelMove()

	n, err := bot.Seed(ctx, client, g, index, spawn, bot.SeedConfig{
		Radius:      tune.ScanRadiusCells,
		CellSpan:    tune.ScanCellSpan,
		Concurrency: tune.ScanConcurrency,
		Tag:         tune.ObjectTag,
	}, logger.WithField("component", "seed"))
	if err != nil && ctx.Err() == nil {
		logger.WithError(err).Warn("seed incomplete")
	}
	logger.WithField("cells", n).Info("ready")

	b := bot.New(bot.Config{
		InboxSize:   tune.InboxSize,
		Self:        welcome.UserID,
		CallTimeout: tune.CallTimeout(),
	}, engine, interp, logger.WithField("component", "dispatch"))

	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()
	disconnected := make(chan struct{})
	go func() {
		if err := b.Feed(runCtx, client.Events()); errors.Is(err, bot.ErrDisconnected) {
			logger.WithError(client.Err()).Error("world connection closed")
			close(disconnected)
			cancelRun()
		}
	}()
	_ = b.Run(runCtx)

	st := b.Stats()
	logger.WithFields(logrus.Fields{
		"clicks":   st.Clicks,
		"created":  st.Created,
		"deleted":  st.Deleted,
		"occupied": st.Occupied,
		"failed":   st.Failed,
		"commands": st.Commands,
	}).Info("shutting down")

	select {
	case <-disconnected:
		_ = fileAudit.Close()
		if idx != nil {
			_ = idx.Close()
		}
		os.Exit(1)
	default:
	}
}
