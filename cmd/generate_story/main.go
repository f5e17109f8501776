// Command generate_story runs one story through the whole pipeline from a
// JSON params file and prints the resulting video path.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Alexsuad/cuentix/pkg/database"
	"github.com/Alexsuad/cuentix/pkg/tools/assembler"
	"github.com/Alexsuad/cuentix/pkg/tools/assets"
	"github.com/Alexsuad/cuentix/pkg/tools/illustrator"
	"github.com/Alexsuad/cuentix/pkg/tools/narrative"
	"github.com/Alexsuad/cuentix/pkg/tools/placeholder"
	"github.com/Alexsuad/cuentix/pkg/tools/tts"
	"github.com/Alexsuad/cuentix/pkg/tools/whisper"
	"github.com/Alexsuad/cuentix/pkg/workflow"

	"github.com/google/uuid"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func main() {
	paramsPath := flag.String("params", "", "path to a JSON file with the wizard parameters")
	configPath := flag.String("config", "config.yaml", "path to config.yaml")
	flag.Parse()

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	if *paramsPath == "" {
		fmt.Fprintln(os.Stderr, "usage: generate_story -params params.json [-config config.yaml]")
		os.Exit(2)
	}

	viper.SetConfigFile(*configPath)
	viper.SetDefault("assets.root", "./data")
	viper.SetDefault("tts.provider", "openai")
	viper.SetDefault("whisper.model", "base")
	viper.SetDefault("pipeline.image_workers", 4)
	viper.SetDefault("pipeline.stage_timeout_minutes", 10)
	if err := viper.ReadInConfig(); err != nil {
		logger.Fatal("Could not load configuration", zap.Error(err))
	}

	data, err := os.ReadFile(*paramsPath)
	if err != nil {
		logger.Fatal("Could not read params file", zap.Error(err))
	}
	var params database.StoryParams
	if err := json.Unmarshal(data, &params); err != nil {
		logger.Fatal("Invalid params JSON", zap.Error(err))
	}

	dbPath := viper.GetString("database.path")
	if dbPath == "" {
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

	root, err := filepath.Abs(viper.GetString("assets.root"))
	if err != nil {
		logger.Fatal("Could not resolve asset root", zap.Error(err))
	}
	layout := assets.NewLayout(root)

	pipeline, err := buildPipeline(store, layout, logger)
	if err != nil {
		logger.Fatal("Could not build pipeline", zap.Error(err))
	}

	story := &database.Story{ID: uuid.NewString(), Status: database.StatusPending}
	if err := store.CreateStory(story); err != nil {
		logger.Fatal("Could not create story", zap.Error(err))
	}

	if err := pipeline.Run(context.Background(), story.ID, params.Map()); err != nil {
		logger.Fatal("Generation failed",
			zap.String("story_id", story.ID),
			zap.Error(err))
	}

	final, err := store.GetStoryByID(story.ID)
	if err != nil {
		logger.Fatal("Could not read back story", zap.Error(err))
	}
	fmt.Println(final.VideoPath)
}

func buildPipeline(store database.StoryStore, layout *assets.Layout, logger *zap.Logger) (*workflow.Pipeline, error) {
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
		assembler.NewAssembler(logger), nil, layout, opts, logger,
	), nil
}
