package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"careerpilot-backend/internal/extract"
	"careerpilot-backend/internal/llm"
	"careerpilot-backend/internal/llm/providers"
	"careerpilot-backend/internal/shared/config"
	"careerpilot-backend/internal/skillmatch"
)

// report is one line of output per processed file.
type report struct {
	File        string             `json:"file"`
	Result      *skillmatch.Result `json:"result,omitempty"`
	Source      skillmatch.Source  `json:"source,omitempty"`
	ServerScore bool               `json:"serverScore"`
	Strict      bool               `json:"strict"`
	Error       string             `json:"error,omitempty"`
}

type options struct {
	strict      bool
	skillsFile  string
	concurrency int
	jdPath      string
	batchDir    string
}

var errSomeFailed = errors.New("one or more files failed")

// newClient is swapped in tests.
var newClient func(context.Context, config.Config) (llm.Client, error) = providers.New

func newRootCmd(cfg config.Config) *cobra.Command {
	opts := &options{strict: cfg.StrictMatching, skillsFile: cfg.SkillsFile}

	root := &cobra.Command{
		Use:           "matchcheck",
		Short:         "Check resume to job description skill matching",
		SilenceUsage: true,
	}
	root.PersistentFlags().BoolVar(&opts.strict, "strict", opts.strict, "always use the deterministic server score")
	root.PersistentFlags().StringVar(&opts.skillsFile, "skills", opts.skillsFile, "skill catalog YAML (default: embedded)")
	root.PersistentFlags().IntVar(&opts.concurrency, "concurrency", 4, "files processed in parallel with --batch")
	root.PersistentFlags().StringVar(&opts.jdPath, "jd", "", "job description text file")
	root.PersistentFlags().StringVar(&opts.batchDir, "batch", "", "process every matching file in this directory")

	root.AddCommand(newAnalyzeCmd(cfg, opts), newExtractCmd(opts))
	return root
}

func newAnalyzeCmd(cfg config.Config, opts *options) *cobra.Command {
	var (
		resumePath string
		provider   string
		model      string
	)
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Run the full pipeline against a live provider",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(opts.jdPath) == "" {
				return errors.New("--jd is required")
			}
			files, err := inputFiles(resumePath, opts.batchDir, "--resume", ".pdf", ".docx")
			if err != nil {
				return err
			}
			jd, err := os.ReadFile(opts.jdPath)
			if err != nil {
				return fmt.Errorf("read job description: %w", err)
			}
			catalog, err := loadCatalog(opts.skillsFile)
			if err != nil {
				return err
			}

			cfg.LLMProvider = provider
			if model != "" {
				cfg.LLMModel = model
			}
			client, err := newClient(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			analyzer := skillmatch.NewAnalyzer(client, catalog, opts.strict)

			reports := runBatch(cmd.Context(), files, opts.concurrency, func(ctx context.Context, path string) report {
				return analyzeFile(ctx, analyzer, path, string(jd))
			})
			return writeReports(cmd, reports)
		},
	}
	cmd.Flags().StringVar(&resumePath, "resume", "", "resume file (.pdf or .docx)")
	cmd.Flags().StringVar(&provider, "provider", cfg.LLMProvider, "ollama, openai or gemini")
	cmd.Flags().StringVar(&model, "model", "", "model name (default: LLM_MODEL)")
	return cmd
}

func newExtractCmd(opts *options) *cobra.Command {
	var (
		inPath     string
		resumePath string
	)
	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Run normalization and field extraction on saved model output",
		RunE: func(cmd *cobra.Command, args []string) error {
			files, err := inputFiles(inPath, opts.batchDir, "--in", ".txt", ".json", ".md")
			if err != nil {
				return err
			}
			var in skillmatch.Input
			if opts.jdPath != "" {
				b, err := os.ReadFile(opts.jdPath)
				if err != nil {
					return fmt.Errorf("read job description: %w", err)
				}
				in.JobDescription = string(b)
			}
			if resumePath != "" {
				b, err := os.ReadFile(resumePath)
				if err != nil {
					return fmt.Errorf("read resume: %w", err)
				}
				in.Resume = string(b)
			}
			catalog, err := loadCatalog(opts.skillsFile)
			if err != nil {
				return err
			}
			analyzer := skillmatch.NewAnalyzer(nil, catalog, opts.strict)

			reports := runBatch(cmd.Context(), files, opts.concurrency, func(ctx context.Context, path string) report {
				return extractFile(analyzer, path, in)
			})
			return writeReports(cmd, reports)
		},
	}
	cmd.Flags().StringVar(&inPath, "in", "", "saved model response")
	cmd.Flags().StringVar(&resumePath, "resume-text", "", "plain-text resume used for the server score")
	return cmd
}

func analyzeFile(ctx context.Context, analyzer *skillmatch.Analyzer, path, jd string) report {
	rep := report{File: path, Strict: analyzer.Strict}
	data, err := os.ReadFile(path)
	if err != nil {
		rep.Error = err.Error()
		return rep
	}
	resume, err := extract.ExtractTextFromBytes(ctx, data, "", filepath.Base(path))
	if err != nil {
		rep.Error = err.Error()
		return rep
	}
	res, trace, err := analyzer.Analyze(ctx, skillmatch.Input{JobDescription: jd, Resume: resume})
	return fill(rep, res, trace, err)
}

func extractFile(analyzer *skillmatch.Analyzer, path string, in skillmatch.Input) report {
	rep := report{File: path, Strict: analyzer.Strict}
	data, err := os.ReadFile(path)
	if err != nil {
		rep.Error = err.Error()
		return rep
	}
	res, trace, err := analyzer.Process(string(data), in)
	return fill(rep, res, trace, err)
}

func fill(rep report, res skillmatch.Result, trace skillmatch.Trace, err error) report {
	rep.Source = trace.Source
	rep.ServerScore = trace.ServerScore
	if err != nil {
		rep.Error = err.Error()
		return rep
	}
	rep.Result = &res
	return rep
}

// runBatch processes files with at most limit in flight. Reports keep input order.
func runBatch(ctx context.Context, files []string, limit int, fn func(context.Context, string) report) []report {
	reports := make([]report, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, limit))
	for i, path := range files {
		g.Go(func() error {
			reports[i] = fn(gctx, path)
			return nil
		})
	}
	_ = g.Wait()
	return reports
}

func writeReports(cmd *cobra.Command, reports []report) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	if len(reports) == 1 {
		enc.SetIndent("", "  ")
	}
	failed := 0
	for _, rep := range reports {
		if rep.Error != "" {
			failed++
		}
		if err := enc.Encode(rep); err != nil {
			return err
		}
	}
	if failed > 0 {
		return fmt.Errorf("%w: %d of %d", errSomeFailed, failed, len(reports))
	}
	return nil
}

// inputFiles resolves the single-file flag or the batch directory.
func inputFiles(single, dir, flag string, exts ...string) ([]string, error) {
	switch {
	case single != "" && dir != "":
		return nil, fmt.Errorf("use either %s or --batch", flag)
	case single != "":
		return []string{single}, nil
	case dir == "":
		return nil, fmt.Errorf("%s or --batch is required", flag)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read batch dir: %w", err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		for _, want := range exts {
			if ext == want {
				files = append(files, filepath.Join(dir, e.Name()))
				break
			}
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no %s files in %s", strings.Join(exts, "/"), dir)
	}
	return files, nil
}

func loadCatalog(path string) (*skillmatch.Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return skillmatch.DefaultCatalog(), nil
	}
	return skillmatch.LoadCatalog(path)
}
