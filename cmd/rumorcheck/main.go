package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"disaster-relief/backend/internal/ai"
	"disaster-relief/backend/internal/rumor"
	"disaster-relief/backend/internal/scoring"
)

type outputLine struct {
	Index   int             `json:"index"`
	Message string          `json:"message"`
	Context string          `json:"context,omitempty"`
	Source  string          `json:"source,omitempty"`
	Engine  string          `json:"engine"`
	Verdict scoring.Verdict `json:"verdict"`
	Error   string          `json:"error,omitempty"`
}

func main() {
	var (
		inputPaths    multiFlag
		lexiconPath   = flag.String("lexicon", "", "Optional YAML lexicon overriding the embedded one (env RUMOR_LEXICON_PATH)")
		outputPath    = flag.String("output", "", "Write JSON lines to this file instead of stdout")
		concurrency   = flag.Int("concurrency", 4, "Maximum messages classified at once")
		heuristicOnly = flag.Bool("heuristic", false, "Skip the primary model and use the keyword heuristic")
		probe         = flag.Bool("probe", true, "Probe the primary model before classifying")
		timeout       = flag.Duration("timeout", 5*time.Minute, "Overall batch timeout")
	)
	flag.Var(&inputPaths, "input", "Text file (one message per line) or CSV file (message[,context,source]); repeatable")
	flag.Parse()

	if *lexiconPath == "" {
		*lexiconPath = strings.TrimSpace(os.Getenv("RUMOR_LEXICON_PATH"))
	}
	lex := scoring.DefaultLexicon()
	if *lexiconPath != "" {
		loaded, err := scoring.LoadLexicon(*lexiconPath)
		if err != nil {
			logrus.Fatalf("load lexicon: %v", err)
		}
		lex = loaded
	}

	var reqs []rumor.Request
	for _, arg := range flag.Args() {
		if msg := strings.TrimSpace(arg); msg != "" {
			reqs = append(reqs, rumor.Request{Message: msg})
		}
	}
	for _, path := range inputPaths {
		loaded, err := readInputFile(path)
		if err != nil {
			logrus.Fatalf("read input: %v", err)
		}
		logrus.WithFields(logrus.Fields{"path": path, "messages": len(loaded)}).Info("loaded input file")
		reqs = append(reqs, loaded...)
	}
	if len(reqs) == 0 {
		logrus.Fatal("no messages to classify: pass them as arguments or with -input")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	var primary ai.Classifier
	if !*heuristicOnly {
		primary = primaryFromEnv()
		if primary != nil && *probe {
			if err := ai.Probe(ctx, primary); err != nil {
				logrus.WithError(err).Warn("primary rumor model failed probe, using heuristic")
				primary = nil
			}
		}
	}
	analyzer := rumor.NewAnalyzer(primary, lex)

	var out io.Writer = os.Stdout
	if *outputPath != "" {
		f, err := os.Create(*outputPath)
		if err != nil {
			logrus.Fatalf("create output: %v", err)
		}
		defer func() {
			if cerr := f.Close(); cerr != nil {
				logrus.WithError(cerr).Warn("close output")
			}
		}()
		out = f
	}

	started := time.Now()
	results, err := analyzer.AnalyzeBatch(ctx, reqs, *concurrency)
	if err != nil {
		logrus.Fatalf("classify batch: %v", err)
	}

	enc := json.NewEncoder(out)
	failures := 0
	for _, result := range results {
		line := outputLine{
			Index:   result.Index,
			Message: result.Request.Message,
			Context: result.Request.Context,
			Source:  result.Request.Source,
			Engine:  analyzer.Engine(),
			Verdict: result.Verdict,
		}
		if result.Err != nil {
			failures++
			line.Error = result.Err.Error()
		}
		if err := enc.Encode(line); err != nil {
			logrus.Fatalf("write output: %v", err)
		}
	}

	logrus.WithFields(logrus.Fields{
		"messages": len(results),
		"failures": failures,
		"engine":   analyzer.Engine(),
		"elapsed":  time.Since(started).Round(time.Millisecond).String(),
	}).Info("rumor batch complete")
}

// primaryFromEnv builds the same backend chain as the server from the same
// variables: Hugging Face first, then the Groq LLM.
func primaryFromEnv() ai.Classifier {
	if ai.ModelDisabledFromEnv(os.Getenv) {
		return nil
	}

	var primary ai.Classifier
	if hf, err := ai.NewHuggingFaceClient(ai.HuggingFaceConfigFromEnv(os.Getenv)); err == nil {
		primary = hf
	} else if !errors.Is(err, ai.ErrDisabled) {
		logrus.WithError(err).Warn("hugging face client unavailable")
	}

	if llm, err := ai.NewClient(ai.ConfigFromEnv(os.Getenv)); err == nil {
		primary = ai.WithFallback(primary, llm)
	} else if !errors.Is(err, ai.ErrDisabled) {
		logrus.WithError(err).Warn("llm client unavailable")
	}
	return primary
}
