package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"mindrisk/internal/cfg"
	"mindrisk/internal/clean"
	"mindrisk/internal/drift"
	"mindrisk/internal/explain"
	"mindrisk/internal/metrics"
	"mindrisk/internal/model"
	"mindrisk/internal/storage"
	"mindrisk/internal/survey"
	"mindrisk/internal/train"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	var (
		dataPath  = flag.String("data", "", "Path to the raw survey CSV (overrides config)")
		outputDir = flag.String("out", "", "Output directory for training reports (overrides config)")
		modelDir  = flag.String("models", "", "Model artifact directory (overrides config)")
		seed      = flag.Int64("seed", 0, "Training seed (overrides config)")
		download  = flag.Bool("download", false, "Download the dataset before training")
		force     = flag.Bool("force", false, "Re-download even if the raw CSV exists")
		listRuns  = flag.Bool("list-runs", false, "List recorded training runs and exit")
		logLevel  = flag.String("log-level", "info", "Log level: debug, info, warn, error")
	)
	flag.Parse()

	// Setup logging
	level, err := zerolog.ParseLevel(*logLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	_ = godotenv.Load()

	config, err := cfg.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}

	// Override config with command line arguments
	if *dataPath != "" {
		config.RawPath = *dataPath
	}
	if *outputDir != "" {
		config.ReportDir = *outputDir
	}
	if *modelDir != "" {
		config.ModelDir = *modelDir
	}
	if *seed != 0 {
		config.Seed = *seed
	}

	store, err := storage.New(config.DataPath)
	if err != nil {
		log.Warn().Err(err).Msg("run registry unavailable, continuing without history")
		store = nil
	} else {
		defer store.Close()
	}

	if *listRuns {
		printRuns(store)
		return
	}

	m := metrics.New()
	if err := run(config, store, m, *download, *force); err != nil {
		m.TrainingFailures.Inc()
		log.Fatal().Err(err).Msg("training pipeline failed")
	}
}

func run(config cfg.Settings, store *storage.Store, m *metrics.Metrics, download, force bool) error {
	if download {
		if config.DatasetURL == "" {
			return fmt.Errorf("download requested but no dataset URL configured")
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		if err := survey.Download(ctx, config.DatasetURL, config.RawPath, force); err != nil {
			return fmt.Errorf("download dataset: %w", err)
		}
	}

	table, err := survey.LoadCSV(config.RawPath)
	if err != nil {
		return fmt.Errorf("load raw data: %w", err)
	}
	log.Info().Int("rows", len(table.Rows)).Str("path", config.RawPath).Msg("raw data loaded")

	cleaner := clean.New()
	frame, err := cleaner.Fit(table)
	if err != nil {
		m.CleaningErrors.Inc()
		return fmt.Errorf("clean data: %w", err)
	}
	m.RowsCleaned.Add(float64(len(frame.X)))

	atRisk := 0
	for _, y := range frame.Y {
		atRisk += y
	}
	log.Info().
		Int("rows", len(frame.X)).
		Int("at_risk", atRisk).
		Int("features", len(frame.FeatureNames)).
		Float64("age_median", cleaner.AgeMedian).
		Msg("dataset cleaned")

	if config.CleanedPath != "" {
		if err := writeCleaned(config.CleanedPath, frame); err != nil {
			log.Warn().Err(err).Msg("could not write cleaned dataset")
		}
	}

	trainCfg := train.Config{
		Seed:         config.Seed,
		TestFraction: config.TestFraction,
		Folds:        config.CVFolds,
		Threshold:    config.ProbThreshold,
	}
	result, err := train.Train(frame, trainCfg)
	if err != nil {
		return fmt.Errorf("train models: %w", err)
	}
	m.TrainingRuns.Inc()

	if err := train.WriteReport(config.ReportDir, result); err != nil {
		log.Warn().Err(err).Msg("could not write training report")
	}

	// Drift statistics are tracked against the cleaned, unscaled data.
	baseline := drift.FitBaseline(frame.FeatureNames, frame.X)

	scaledX := result.Scaler.Apply(frame.X)
	explainer, err := explain.New(result.Model, frame.FeatureNames, scaledX)
	if err != nil {
		return fmt.Errorf("build explainer: %w", err)
	}
	ranking, err := explainer.Global(scaledX)
	if err != nil {
		return fmt.Errorf("compute feature importance: %w", err)
	}
	for i, fi := range ranking {
		if i >= config.TopK {
			break
		}
		log.Info().Str("feature", fi.Feature).Float64("importance", fi.Importance).Msg("top feature")
	}

	manager, err := model.NewManager(config.ModelDir)
	if err != nil {
		return fmt.Errorf("open model directory: %w", err)
	}

	bundle := &model.Bundle{
		Meta: model.Metadata{
			RunID:        result.RunID,
			Kind:         result.BestKind,
			TrainedAt:    result.StartedAt,
			Metrics:      result.BestMetrics,
			TrainingRows: result.TrainRows,
			Seed:         result.Seed,
			FeatureNames: result.FeatureNames,
		},
		Model:    result.Model,
		Cleaner:  cleaner,
		Scaler:   result.Scaler,
		Baseline: baseline,
	}
	version, err := manager.Save(bundle)
	if err != nil {
		return fmt.Errorf("save model artifact: %w", err)
	}

	if store != nil {
		rec := storage.RunRecord{
			RunID:        result.RunID,
			ModelVersion: version,
			Kind:         result.BestKind,
			StartedAt:    result.StartedAt,
			Duration:     result.Duration,
			Seed:         result.Seed,
			TrainRows:    result.TrainRows,
			TestRows:     result.TestRows,
			Metrics:      result.BestMetrics,
		}
		if err := store.StoreRun(rec); err != nil {
			log.Warn().Err(err).Msg("could not record training run")
		}
		if err := store.StoreImportance(version, ranking); err != nil {
			log.Warn().Err(err).Msg("could not record feature importance")
		}
	}

	log.Info().
		Str("version", version).
		Str("model", result.BestKind).
		Float64("f1", result.BestMetrics.F1).
		Float64("accuracy", result.BestMetrics.Accuracy).
		Float64("roc_auc", result.BestMetrics.ROCAUC).
		Dur("duration", result.Duration).
		Msg("training complete, artifact activated")
	return nil
}

// writeCleaned persists the encoded feature matrix with the derived
// label as a CSV for inspection.
func writeCleaned(path string, frame *clean.Frame) error {
	columns := append(append([]string{}, frame.FeatureNames...), clean.TargetColumn)
	rows := make([][]string, len(frame.X))
	for i, vec := range frame.X {
		row := make([]string, 0, len(vec)+1)
		for _, v := range vec {
			row = append(row, strconv.FormatFloat(v, 'g', -1, 64))
		}
		row = append(row, strconv.Itoa(frame.Y[i]))
		rows[i] = row
	}
	return survey.WriteCSV(path, columns, rows)
}

func printRuns(store *storage.Store) {
	if store == nil {
		fmt.Println("run registry unavailable")
		return
	}
	runs, err := store.ListRuns()
	if err != nil {
		log.Fatal().Err(err).Msg("could not list runs")
	}
	if len(runs) == 0 {
		fmt.Println("no training runs recorded")
		return
	}

	fmt.Printf("%-38s %-20s %-20s %-8s %-8s\n", "RUN", "STARTED", "MODEL", "F1", "ACC")
	for _, r := range runs {
		fmt.Printf("%-38s %-20s %-20s %-8.4f %-8.4f\n",
			r.RunID,
			r.StartedAt.Format("2006-01-02 15:04:05"),
			r.Kind,
			r.Metrics.F1,
			r.Metrics.Accuracy,
		)
	}
}
