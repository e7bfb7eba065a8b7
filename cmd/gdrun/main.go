package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/pkg/profile"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/goldsprite/gdengine/internal/asset"
	"github.com/goldsprite/gdengine/internal/component"
	"github.com/goldsprite/gdengine/internal/config"
	"github.com/goldsprite/gdengine/internal/core/ecs"
	"github.com/goldsprite/gdengine/internal/core/event"
	coresys "github.com/goldsprite/gdengine/internal/core/system"
	"github.com/goldsprite/gdengine/internal/link"
	"github.com/goldsprite/gdengine/internal/persist"
	"github.com/goldsprite/gdengine/internal/project"
	"github.com/goldsprite/gdengine/internal/render"
	"github.com/goldsprite/gdengine/internal/render/ebitenbatch"
	"github.com/goldsprite/gdengine/internal/scene"
	"github.com/goldsprite/gdengine/internal/scripting"
	"github.com/goldsprite/gdengine/internal/system"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// ── Startup display helpers ────────────────────────────────────────

func printBanner(name, mode string) {
	fmt.Println()
	fmt.Println("\033[36;1m  ┌───────────────────────────────────────────┐\033[0m")
	fmt.Println("\033[36;1m  │\033[0m              gdengine runtime             \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  └───────────────────────────────────────────┘\033[0m")
	fmt.Println()
	fmt.Printf("  \033[1mengine:\033[0m %s \033[90m(%s)\033[0m\n\n", name, mode)
}

func printSection(title string) {
	lineLen := 46 - len(title) - 1
	if lineLen < 3 {
		lineLen = 3
	}
	fmt.Printf("  \033[33m── %s %s\033[0m\n", title, strings.Repeat("─", lineLen))
}

func printStat(label string, count int) {
	numStr := fmt.Sprintf("%d", count)
	dotsLen := 42 - len(label) - len(numStr)
	if dotsLen < 3 {
		dotsLen = 3
	}
	fmt.Printf("  %s \033[90m%s\033[0m \033[32m%s\033[0m\n", label, strings.Repeat("·", dotsLen), numStr)
}

func printOK(msg string) {
	fmt.Printf("  \033[32m✓\033[0m %s\n", msg)
}

func printReady(msg string) {
	fmt.Printf("  \033[32m▶\033[0m %s\n", msg)
}

// ── Runtime ───────────────────────────────────────────────────────

func run() error {
	// 1. Config. An optional argument names the project to load.
	cfg, err := config.LoadDefault()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if len(os.Args) > 1 {
		cfg.Project.Path = os.Args[1]
		cfg.Project.AutoLoad = true
	}

	// 2. Logger. The bus exists first so that log lines reach editors.
	bus := event.NewBus()
	var extra []zapcore.Core
	if cfg.Link.Enabled {
		extra = append(extra, link.NewLogCore(bus, zapcore.InfoLevel))
	}
	log, err := newLogger(cfg.Logging, extra...)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	if stop := startProfile(cfg.Profile); stop != nil {
		defer stop()
	}

	printBanner(cfg.Engine.Name, cfg.Engine.Mode)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// 3. Optional store.
	var (
		db      *persist.DB
		runs    system.RunWriter
		runRepo *persist.RunRepo
		scenes  *persist.SceneRepo
	)
	if cfg.Store.Enabled {
		printSection("store")
		dbCtx, dbCancel := context.WithTimeout(ctx, 30*time.Second)
		db, err = persist.NewDB(dbCtx, cfg.Store, log)
		if err != nil {
			dbCancel()
			return fmt.Errorf("store: %w", err)
		}
		defer db.Close()
		printOK("PostgreSQL connected")
		if err := persist.RunMigrations(dbCtx, db.Pool); err != nil {
			dbCancel()
			return fmt.Errorf("migrations: %w", err)
		}
		dbCancel()
		printOK("migrations applied")
		runRepo = persist.NewRunRepo(db)
		runs = runRepo
		scenes = persist.NewSceneRepo(db)
		fmt.Println()
	}

	// 4. World, resources, scripting.
	printSection("runtime")
	tracker := asset.NewTracker(nil, log)
	sceneAssets := asset.NewTracker(nil, log)
	world := ecs.NewWorld(ecs.Options{
		Log:           log,
		Bus:           bus,
		Assets:        tracker,
		SceneAssets:   sceneAssets,
		SortingLayers: cfg.Render.SortingLayers,
	})
	world.SetTimeScale(cfg.Runtime.TimeScale)
	comps := component.NewRegistry()
	printStat("component kinds", len(comps.Kinds()))
	printStat("sorting layers", len(world.SortingLayers()))

	host := scripting.NewHost(scripting.HostOptions{
		World:          world,
		Resources:      tracker,
		Compiler:       scripting.NewDispatcher(log),
		Components:     comps,
		Bus:            bus,
		Log:            log,
		CompileTimeout: cfg.Script.CompileTimeout,
		CallOnStop:     cfg.Script.CallOnStop,
		Entry:          cfg.Project.Entry,
	})
	codec := scene.NewCodec(comps, log)
	host.OnOpen(func(p *project.Project) error {
		sceneAssets.SetResolver(asset.NewResolver(p.AssetsPath()))
		roots, err := codec.Open(p, world)
		log.Info("project opened", zap.String("src", "Host"), zap.String("project", p.Manifest.Name),
			zap.String("scene", p.Manifest.Scene), zap.Int("roots", len(roots)))
		return err
	})
	printOK("script host ready")

	// 5. Editor link.
	var editor *link.Editor
	if cfg.Link.Enabled {
		srv, err := link.NewServer(cfg.Link.BindAddress, link.ServerOptions{
			InQueueSize:  cfg.Link.InQueueSize,
			OutQueueSize: cfg.Link.OutQueueSize,
			WriteTimeout: cfg.Link.WriteTimeout,
			ReadTimeout:  cfg.Link.ReadTimeout,
		}, log)
		if err != nil {
			return fmt.Errorf("editor link: %w", err)
		}
		go srv.AcceptLoop()
		opts := link.EditorOptions{
			Context:            ctx,
			World:              world,
			Host:               host,
			Bus:                bus,
			Codec:              codec,
			Server:             srv,
			Log:                log,
			EngineName:         cfg.Engine.Name,
			ProjectsDir:        cfg.Engine.ProjectsDir,
			AsyncLoad:          cfg.Script.AsyncCompile,
			MaxCommandsPerTick: cfg.Link.MaxCommandsPerTick,
		}
		if db != nil {
			opts.Snapshots = scenes
			opts.Runs = runRepo
		}
		editor = link.NewEditor(opts)
		printReady(fmt.Sprintf("editor link on %s", srv.Addr()))
	}

	// 6. Frame systems.
	runner := coresys.NewRunner()
	if editor != nil {
		runner.Register(system.NewLinkInputSystem(editor))
	}
	runner.Register(system.NewWorldUpdateSystem(world, cfg.Runtime.MaxDelta))
	runner.Register(system.NewScriptSystem(host, world, cfg.Runtime.MaxDelta))
	runner.Register(system.NewCleanupSystem(world))
	runner.Register(system.NewEventSystem(bus))
	if editor != nil {
		runner.Register(system.NewLinkOutputSystem(editor))
	}
	journal := system.NewJournalSystem(host, runs, log, journalInterval(cfg.Runtime.TickRate))
	runner.Register(journal)

	// 7. Initial project.
	if cfg.Project.AutoLoad && cfg.Project.Path != "" {
		path := cfg.Project.Path
		if !filepath.IsAbs(path) && cfg.Engine.ProjectsDir != "" {
			if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
				path = filepath.Join(cfg.Engine.ProjectsDir, path)
			}
		}
		if cfg.Script.AsyncCompile {
			host.LoadAsync(ctx, path)
		} else if err := host.Load(ctx, path); err != nil {
			// The host keeps the diagnostic; the runtime stays up for the editor.
			log.Warn("initial project failed", zap.String("src", "Engine"), zap.String("path", path), zap.Error(err))
		}
	}
	fmt.Println()

	// 8. Frame loop.
	var loopErr error
	if cfg.Runtime.Headless {
		printReady(fmt.Sprintf("headless loop (tick: %s)", cfg.Runtime.TickRate))
		runHeadless(ctx, runner, cfg.Runtime.TickRate)
	} else {
		bg, err := render.ParseColor(cfg.Render.ClearColor)
		if err != nil {
			bg = render.Black
		}
		game := ebitenbatch.NewGame(ebitenbatch.GameOptions{
			Context:     ctx,
			Runner:      runner,
			World:       world,
			Clear:       bg,
			LogicWidth:  cfg.Render.LogicWidth,
			LogicHeight: cfg.Render.LogicHeight,
			TickRate:    tps(cfg.Runtime.TickRate),
			Picking:     cfg.Engine.Mode == "editor",
			Log:         log,
		})
		printReady(fmt.Sprintf("window %dx%d", cfg.Render.LogicWidth, cfg.Render.LogicHeight))
		loopErr = game.Run(cfg.Render.Title)
	}

	// 9. Teardown: snapshot, host, world, link, journal, store.
	log.Info("shutting down", zap.String("src", "Engine"))
	if scenes != nil && host.Project() != nil {
		saveSnapshot(scenes, codec, world, host, log)
	}
	host.Shutdown()
	world.Reset()
	if editor != nil {
		editor.Shutdown()
	}
	journal.Flush()
	log.Info("shutdown complete", zap.String("src", "Engine"))
	return loopErr
}

func runHeadless(ctx context.Context, runner *coresys.Runner, rate time.Duration) {
	ticker := time.NewTicker(rate)
	defer ticker.Stop()
	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			runner.Tick(now.Sub(last))
			last = now
		}
	}
}

func saveSnapshot(repo *persist.SceneRepo, codec *scene.Codec, world *ecs.World, host *scripting.Host, log *zap.Logger) {
	raw, err := codec.Marshal(world)
	if err != nil {
		log.Error("scene snapshot encode failed", zap.String("src", "Store"), zap.Error(err))
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	name := host.Project().Manifest.Name
	id, err := repo.Save(ctx, name, "shutdown", world.Count(), raw)
	if err != nil {
		log.Error("scene snapshot failed", zap.String("src", "Store"), zap.Error(err))
		return
	}
	if _, err := repo.Prune(ctx, name, "shutdown", 10); err != nil {
		log.Warn("scene snapshot prune failed", zap.String("src", "Store"), zap.Error(err))
	}
	log.Info("scene snapshot saved", zap.String("src", "Store"), zap.Int64("id", id), zap.Int("entities", world.Count()))
}

// journalInterval flushes the run journal about once a second.
func journalInterval(rate time.Duration) int {
	if rate <= 0 {
		return 60
	}
	n := int(time.Second / rate)
	if n < 1 {
		n = 1
	}
	return n
}

func tps(rate time.Duration) int {
	if rate <= 0 {
		return 60
	}
	return int(time.Second / rate)
}

func startProfile(cfg config.ProfileConfig) func() {
	var mode func(*profile.Profile)
	switch cfg.Mode {
	case "cpu":
		mode = profile.CPUProfile
	case "mem":
		mode = profile.MemProfileAllocs
	case "trace":
		mode = profile.TraceProfile
	default:
		return nil
	}
	path := cfg.Path
	if path == "" {
		path = "."
	}
	p := profile.Start(mode, profile.ProfilePath(path), profile.NoShutdownHook, profile.Quiet)
	return p.Stop
}

func newLogger(cfg config.LoggingConfig, extra ...zapcore.Core) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	if len(extra) == 0 {
		return zapCfg.Build()
	}
	return zapCfg.Build(zap.WrapCore(func(c zapcore.Core) zapcore.Core {
		return zapcore.NewTee(append([]zapcore.Core{c}, extra...)...)
	}))
}
