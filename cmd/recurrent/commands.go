package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/born-ml/recurrent/internal/config"
	"github.com/born-ml/recurrent/internal/recurrent"
	"github.com/born-ml/recurrent/internal/serialization"
	"github.com/born-ml/recurrent/internal/tokenizer"
)

// optimizerPrefix marks optimizer state in a .born snapshot.
const optimizerPrefix = "optim."

func loadConfig(path string) (config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

func trainCommand(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("train", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "YAML configuration file")
	dataPath := fs.String("data", "", "Training text, one sequence per line")
	pairs := fs.Bool("pairs", false, "Lines are input<TAB>output pairs")
	out := fs.String("out", "model.born", "Where to write the trained model")
	jsonOut := fs.String("json", "", "Also write a JSON snapshot to this file")
	iterations := fs.Int("iterations", 0, "Override train.iterations")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *dataPath == "" {
		return errors.New("train: -data is required")
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	if *iterations > 0 {
		cfg.Train.Iterations = *iterations
	}
	logger, err := cfg.Log.NewLogger(stderr)
	if err != nil {
		return err
	}

	lines, err := readLines(*dataPath)
	if err != nil {
		return err
	}
	seg, err := cfg.Text.NewSegmenter()
	if err != nil {
		return err
	}

	model := recurrent.NewTextModel(cfg.Model, seg, logger)
	if cfg.Text.Vocabulary == config.VocabularyPrintable {
		vocab := tokenizer.FromAllPrintable()
		if *pairs {
			vocab.AddInputOutput()
		}
		model.SetVocabulary(vocab)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	logger.WithFields(logrus.Fields{
		"sequences": len(lines),
		"type":      cfg.Model.Type,
		"hidden":    cfg.Model.HiddenSizes,
		"segmenter": seg.Name(),
	}).Info("training started")

	var status recurrent.TrainStatus
	if *pairs {
		examples, perr := parsePairs(lines)
		if perr != nil {
			return perr
		}
		status, err = model.TrainPairs(ctx, examples, cfg.Train)
	} else {
		status, err = model.Train(ctx, lines, cfg.Train)
	}
	if err != nil {
		return fmt.Errorf("train: %w", err)
	}

	logger.WithFields(logrus.Fields{
		"iterations": status.Iterations,
		"error":      status.Error,
		"perplexity": recurrent.Perplexity(status.Error),
		"vocabulary": model.Vocabulary().Size(),
	}).Info("training finished")

	if err := model.SaveFile(*out); err != nil {
		return fmt.Errorf("save model: %w", err)
	}
	if *jsonOut != "" {
		data, err := json.MarshalIndent(model, "", "  ")
		if err != nil {
			return fmt.Errorf("encode snapshot: %w", err)
		}
		if err := os.WriteFile(*jsonOut, data, 0o644); err != nil { //nolint:gosec // Snapshots are not secret
			return fmt.Errorf("write snapshot: %w", err)
		}
	}

	fmt.Fprintf(stdout, "error %.4f bits (perplexity %.3f) after %d iterations, saved to %s\n",
		status.Error, recurrent.Perplexity(status.Error), status.Iterations, *out)
	return nil
}

func runCommand(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "YAML configuration file (generate and log sections)")
	modelPath := fs.String("model", "model.born", "Trained model (.born or .json)")
	input := fs.String("input", "", "Text to continue")
	maxLength := fs.Int("max", -1, "Maximum generated symbols (-1 = generate.max_length)")
	sample := fs.Bool("sample", false, "Sample instead of taking the most likely symbol")
	temperature := fs.Float64("temperature", 0, "Sampling temperature (implies -sample)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	logger, err := cfg.Log.NewLogger(stderr)
	if err != nil {
		return err
	}
	if *maxLength >= 0 {
		cfg.Generate.MaxLength = *maxLength
	}
	if *sample || *temperature > 0 {
		cfg.Generate.Sample = true
	}
	if *temperature > 0 {
		cfg.Generate.Temperature = *temperature
	}

	model, err := loadTextModel(*modelPath, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	results, err := model.RunStream(ctx, *input, cfg.Generate.RunOptions())
	if err != nil {
		return err
	}
	fmt.Fprint(stdout, *input)
	for res := range results {
		if res.Err != nil {
			return res.Err
		}
		fmt.Fprint(stdout, res.Text)
	}
	fmt.Fprintln(stdout)
	return nil
}

func loadTextModel(path string, logger *logrus.Logger) (*recurrent.TextModel, error) {
	if strings.HasSuffix(path, ".json") {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read model: %w", err)
		}
		return recurrent.TextFromJSON(data, logger)
	}
	return recurrent.LoadTextFile(path, logger)
}

func infoCommand(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("info", flag.ContinueOnError)
	fs.SetOutput(stderr)
	modelPath := fs.String("model", "model.born", "Snapshot to inspect")
	if err := fs.Parse(args); err != nil {
		return err
	}

	reader, err := serialization.OpenFile(*modelPath, serialization.ReaderOptions{})
	if err != nil {
		return err
	}
	header := reader.Header()

	fmt.Fprintf(stdout, "id:       %s\n", header.ID)
	fmt.Fprintf(stdout, "type:     %s\n", header.ModelType)
	fmt.Fprintf(stdout, "created:  %s\n", header.CreatedAt.Format("2006-01-02 15:04:05 MST"))
	if meta := header.CheckpointMeta; meta != nil {
		fmt.Fprintf(stdout, "steps:    %d (%s)\n", meta.Iterations, meta.OptimizerType)
	}

	var params int
	fmt.Fprintln(stdout, "tensors:")
	for _, name := range reader.TensorNames() {
		info, err := reader.TensorInfo(name)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "  %-36s %v\n", name, info.Shape)
		if !strings.HasPrefix(name, optimizerPrefix) {
			params += info.Shape[0] * info.Shape[1]
		}
	}
	fmt.Fprintf(stdout, "parameters: %d\n", params)
	return nil
}

func exportCommand(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	fs.SetOutput(stderr)
	modelPath := fs.String("model", "model.born", "Snapshot to export")
	out := fs.String("out", "model.safetensors", "SafeTensors output file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	reader, err := serialization.OpenFile(*modelPath, serialization.ReaderOptions{})
	if err != nil {
		return err
	}
	dict, err := reader.ReadStateDict()
	if err != nil {
		return err
	}
	for name := range dict {
		if strings.HasPrefix(name, optimizerPrefix) {
			delete(dict, name)
		}
	}

	header := reader.Header()
	metadata := map[string]string{
		"format":     "born",
		"id":         header.ID,
		"model_type": header.ModelType,
	}
	for k, v := range reader.Metadata() {
		metadata[k] = v
	}
	if err := serialization.WriteSafeTensorsFile(*out, dict, metadata); err != nil {
		return err
	}

	fmt.Fprintf(stdout, "exported %d tensors to %s\n", len(dict), *out)
	return nil
}

// readLines returns the non-empty lines of path.
func readLines(path string) ([]string, error) {
	f, err := os.Open(path) //nolint:gosec // Path comes from the user
	if err != nil {
		return nil, fmt.Errorf("open data: %w", err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		if line := strings.TrimRight(scanner.Text(), "\r"); line != "" {
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read data: %w", err)
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("%s: %w", path, recurrent.ErrEmptyDataset)
	}
	return lines, nil
}

func parsePairs(lines []string) ([]recurrent.Pair, error) {
	pairs := make([]recurrent.Pair, len(lines))
	for i, line := range lines {
		input, output, ok := strings.Cut(line, "\t")
		if !ok {
			return nil, fmt.Errorf("line %d: expected input<TAB>output", i+1)
		}
		pairs[i] = recurrent.Pair{Input: input, Output: output}
	}
	return pairs, nil
}
