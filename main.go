package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/Alexsuad/cuentix/cmd/web_server"
	"github.com/Alexsuad/cuentix/internal/mcp"
	"github.com/Alexsuad/cuentix/pkg/broadcast"
	"github.com/Alexsuad/cuentix/pkg/database"
	"github.com/Alexsuad/cuentix/pkg/tools/assembler"
	"github.com/Alexsuad/cuentix/pkg/tools/assets"
	"github.com/Alexsuad/cuentix/pkg/tools/illustrator"
	"github.com/Alexsuad/cuentix/pkg/tools/narrative"
	"github.com/Alexsuad/cuentix/pkg/tools/placeholder"
	"github.com/Alexsuad/cuentix/pkg/tools/tts"
	"github.com/Alexsuad/cuentix/pkg/tools/whisper"
	"github.com/Alexsuad/cuentix/pkg/workflow"

	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	if err := loadConfig(logger); err != nil {
		logger.Fatal("Could not load configuration", zap.Error(err))
	}

	dbPath := viper.GetString("database.path")
	if dbPath == "" {
		var err error
		dbPath, err = database.DefaultDatabasePath()
		if err != nil {
			logger.Fatal("Could not resolve database path", zap.Error(err))
		}
	}
	store, err := database.NewGormManager(dbPath)
	if err != nil {
		logger.Fatal("Could not open database", zap.Error(err))
	}
	defer store.Close()
	logger.Info("Database ready", zap.String("path", dbPath))

	broadcaster := broadcast.NewService()
	var wg sync.WaitGroup
	wg.Add(1)
	go broadcaster.Start(&wg)

	layout := assets.NewLayout(assetRoot())

	pipeline, err := buildPipeline(store, broadcaster, layout, logger)
	if err != nil {
		logger.Fatal("Could not build pipeline", zap.Error(err))
	}

	server := web_server.NewServer(store, pipeline, broadcaster, layout.Root(), logger)
	addr := fmt.Sprintf(":%d", viper.GetInt("server.port"))
	go func() {
		if err := server.Run(addr); err != nil {
			logger.Fatal("Web server stopped", zap.Error(err))
		}
	}()

	if viper.GetBool("mcp.enabled") {
		mcpServer, err := mcp.NewServer(store, pipeline, logger)
		if err != nil {
			logger.Fatal("Could not create MCP server", zap.Error(err))
		}
		logger.Info("MCP server starting",
			zap.Strings("tools", mcpServer.GetToolNames()))
		go func() {
			if err := mcpServer.Start(context.Background()); err != nil {
				logger.Error("MCP server exited", zap.Error(err))
			}
		}()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down")
	broadcaster.Close()
	wg.Wait()
}

// loadConfig reads config.yaml from the working directory, falling back to
// the executable's directory.
func loadConfig(logger *zap.Logger) error {
	wd, _ := os.Getwd()
	configPath := filepath.Join(wd, "config.yaml")

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		exe, exeErr := os.Executable()
		if exeErr != nil {
			return exeErr
		}
		configPath = filepath.Join(filepath.Dir(exe), "config.yaml")
	}

	viper.SetConfigFile(configPath)
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("assets.root", "./data")
	viper.SetDefault("tts.provider", "openai")
	viper.SetDefault("whisper.model", "base")
	viper.SetDefault("pipeline.image_workers", 4)
	viper.SetDefault("pipeline.stage_timeout_minutes", 10)

	if err := viper.ReadInConfig(); err != nil {
		return err
	}
	logger.Info("Configuration loaded", zap.String("path", configPath))
	return nil
}

func assetRoot() string {
	root := viper.GetString("assets.root")
	if abs, err := filepath.Abs(root); err == nil {
		return abs
	}
	return root
}

// buildPipeline wires the stage components from the configuration.
func buildPipeline(store database.StoryStore, broadcaster *broadcast.Service, layout *assets.Layout, logger *zap.Logger) (*workflow.Pipeline, error) {
	narrator := narrative.NewGenerator(
		narrative.NewDeepSeekBackend(
			viper.GetString("narrative.api_key"),
			viper.GetString("narrative.base_url"),
			viper.GetString("narrative.model"),
		),
		logger,
	)

	var engine, fallback tts.Engine
	switch viper.GetString("tts.provider") {
	case "elevenlabs":
		engine = tts.NewElevenLabsEngine(logger, viper.GetString("tts.api_key"), viper.GetString("tts.voice"))
		fallback = tts.NewEspeakEngine(logger)
	case "espeak":
		engine = tts.NewEspeakEngine(logger)
	default:
		engine = tts.NewOpenAIEngine(logger, viper.GetString("tts.api_key"), viper.GetString("tts.voice"))
		fallback = tts.NewEspeakEngine(logger)
	}
	speech := tts.NewSynthesizer(engine, fallback, logger)

	transcriber, err := whisper.NewTranscriber(logger, viper.GetString("whisper.model"))
	if err != nil {
		return nil, fmt.Errorf("whisper setup: %w", err)
	}

	placeholderPath := filepath.Join(layout.Root(), "placeholder.png")
	renderer := placeholder.NewRenderer(logger, viper.GetString("images.placeholder_font"))
	if err := renderer.Ensure(placeholderPath, "Cuentix"); err != nil {
		return nil, fmt.Errorf("placeholder setup: %w", err)
	}

	scenes := illustrator.New(
		illustrator.NewOpenAIBackend(logger, viper.GetString("images.api_key")),
		illustrator.Config{PlaceholderPath: placeholderPath},
		logger,
	)

	opts := workflow.Options{
		ImageWorkers: viper.GetInt("pipeline.image_workers"),
		StageTimeout: time.Duration(viper.GetInt("pipeline.stage_timeout_minutes")) * time.Minute,
	}

	return workflow.NewPipeline(
		store, narrator, speech, transcriber, scenes,
		assembler.NewAssembler(logger), broadcaster, layout, opts, logger,
	), nil
}
