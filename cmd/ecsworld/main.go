package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/l1jgo/ecsworld/internal/component"
	"github.com/l1jgo/ecsworld/internal/config"
	"github.com/l1jgo/ecsworld/internal/core/ecs"
	"github.com/l1jgo/ecsworld/internal/core/event"
	coresys "github.com/l1jgo/ecsworld/internal/core/system"
	"github.com/l1jgo/ecsworld/internal/schema"
	"github.com/l1jgo/ecsworld/internal/scripting"
	"github.com/l1jgo/ecsworld/internal/system"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// ── Startup display helpers ────────────────────────────────────────

func printBanner() {
	fmt.Println()
	fmt.Println("\033[36;1m  ┌───────────────────────────────────────────┐\033[0m")
	fmt.Println("\033[36;1m  │\033[0m              ecsworld  v0.1.0             \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  └───────────────────────────────────────────┘\033[0m")
	fmt.Println()
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

func run() error {
	// 1. Load config
	cfg, err := config.Load(config.Path())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Init logger
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	printBanner()

	// 3. Build the world
	printSection("world")
	bus := event.NewBus()
	world := ecs.NewCoordinator(
		ecs.WithMaxEntities(cfg.World.MaxEntities),
		ecs.WithComponentCapacity(cfg.World.ComponentCapacity),
		ecs.WithLogger(log.Named("ecs")),
		ecs.WithEventBus(bus),
	)
	defer world.Close()

	if err := component.Register(world); err != nil {
		return fmt.Errorf("register components: %w", err)
	}
	systems, err := system.Register(world)
	if err != nil {
		return fmt.Errorf("register systems: %w", err)
	}
	printStat("max entities", cfg.World.MaxEntities)

	// 4. Scripting
	if cfg.Scripting.Enabled {
		reg, err := schema.LoadFile(cfg.Schema.Path)
		if err != nil {
			return fmt.Errorf("load schema: %w", err)
		}
		bridge, err := scripting.NewBridge(world, reg, log.Named("lua"))
		if err != nil {
			return fmt.Errorf("scripting: %w", err)
		}
		defer bridge.Close()
		if err := bridge.LoadDir(cfg.Scripting.ScriptsDir); err != nil {
			return fmt.Errorf("scripting: %w", err)
		}
		if _, err := world.RegisterQuerySystem(scripting.NewSystem(bridge)); err != nil {
			return fmt.Errorf("register script system: %w", err)
		}
		printStat("schema components", len(reg.Components()))
		printOK("lua scripts loaded")
	}
	for _, info := range world.ComponentInfos() {
		log.Debug("component",
			zap.Uint8("id", uint8(info.Type)),
			zap.String("name", info.Name),
			zap.Int("size", info.Size))
	}
	printStat("component types", len(world.ComponentInfos()))
	printStat("systems", len(world.Systems()))

	// 5. Demo population
	var created, destroyed int
	event.Subscribe(bus, func(ev ecs.EntityCreated) { created++ })
	event.Subscribe(bus, func(ev ecs.EntityDestroyed) { destroyed++ })

	n, err := spawnDemo(world, cfg.Demo)
	if err != nil {
		return fmt.Errorf("spawn demo: %w", err)
	}
	printStat("entities spawned", n)
	fmt.Println()

	// 6. Run until interrupted or the tick limit
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner := coresys.NewRunner(world, bus, cfg.Loop.TickRate, cfg.Loop.MaxTicks, log)
	printReady(fmt.Sprintf("running at %s per tick", cfg.Loop.TickRate))
	if err := runner.Run(ctx); err != nil {
		return err
	}

	clock, _ := ecs.GetSingleton[component.Clock](world)
	stats, _ := ecs.GetSingleton[component.RenderStats](world)
	log.Info("world stopped",
		zap.Int("ticks", runner.Ticks()),
		zap.Duration("elapsed", clock.Elapsed),
		zap.Int("living", world.LivingCount()),
		zap.Int("created", created),
		zap.Int("destroyed", destroyed),
		zap.Int("expired", systems.Lifetime.Expired()),
		zap.Int("batches", stats.Batches),
		zap.Int("drawn", stats.Drawn))
	return nil
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
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

	return zapCfg.Build()
}
