package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/market-research/internal/model"
	"github.com/sells-group/market-research/internal/registry"
	"github.com/sells-group/market-research/internal/report"
	"github.com/sells-group/market-research/pkg/notion"
)

type researchFlags struct {
	jobPath        string
	landscape      string
	description    string
	urls           []string
	phases         string
	resume         bool
	notionFeatures bool
}

var researchOpts researchFlags

var researchCmd = &cobra.Command{
	Use:   "research",
	Short: "Run a market research job",
	Long:  "Runs the feature, product and crawl phases over the job's vendor URLs and writes the report tables.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		phases, unknown := model.ParsePhases(researchOpts.phases)
		if len(unknown) > 0 {
			return eris.Errorf("unknown phases: %s", strings.Join(unknown, ", "))
		}

		var featureSource func(context.Context) ([]model.FeatureSpec, error)
		if researchOpts.notionFeatures {
			featureSource = func(ctx context.Context) ([]model.FeatureSpec, error) {
				if cfg.Notion.Token == "" || cfg.Notion.FeatureDB == "" {
					return nil, eris.New("notion.token and notion.feature_db are required for --notion-features")
				}
				return registry.LoadFeatures(ctx, notion.NewClient(cfg.Notion.Token), cfg.Notion.FeatureDB)
			}
		}

		job, err := buildJob(ctx, researchOpts, featureSource)
		if err != nil {
			return err
		}

		env, err := initResearch(ctx, researchOpts.resume)
		if err != nil {
			return err
		}
		defer env.Close()

		log := zap.L().With(zap.String("run_key", job.Landscape.RunKey()))
		log.Info("starting research",
			zap.Int("urls", len(job.URLs)),
			zap.Int("features", len(job.Features)),
			zap.Int("phases", len(phases)),
		)

		rep, runErr := env.Pipeline.Run(ctx, job, phases)
		logUsage(env.Gateway)
		if runErr != nil && !errors.Is(runErr, context.Canceled) {
			return eris.Wrap(runErr, "research run")
		}
		if runErr != nil {
			log.Warn("research interrupted, writing partial report", zap.Error(runErr))
		}

		files, err := report.New(cfg.Output).Write(rep)
		if err != nil {
			return eris.Wrap(err, "write report")
		}
		for _, f := range files {
			fmt.Fprintln(cmd.OutOrStdout(), f)
		}
		log.Info("research complete", zap.Int("files", len(files)))

		return runErr
	},
}

// buildJob assembles the job from the job file (or the default job) and
// flag overrides. features, when set, replaces the rubric.
func buildJob(ctx context.Context, f researchFlags, features func(context.Context) ([]model.FeatureSpec, error)) (*model.Job, error) {
	var (
		job *model.Job
		err error
	)
	if f.jobPath != "" {
		job, err = registry.LoadJob(f.jobPath)
		if err != nil {
			return nil, err
		}
	} else {
		job = registry.DefaultJob()
	}

	if f.landscape != "" {
		job.Landscape.Name = f.landscape
	}
	if f.description != "" {
		job.Landscape.Description = f.description
	}

	var extra []string
	for _, u := range f.urls {
		extra = append(extra, registry.SplitURLs(u)...)
	}
	job.URLs = registry.CleanURLs(append(job.URLs, extra...))
	if len(job.URLs) == 0 {
		return nil, eris.New("no URLs to research: pass --url or set urls in the job file")
	}

	if features != nil {
		specs, err := features(ctx)
		if err != nil {
			return nil, eris.Wrap(err, "load features")
		}
		job.Features = specs
	}
	return job, nil
}

func init() {
	f := researchCmd.Flags()
	f.StringVar(&researchOpts.jobPath, "job", "", "path to a YAML job file")
	f.StringVar(&researchOpts.landscape, "landscape", "", "landscape name (overrides the job file)")
	f.StringVar(&researchOpts.description, "description", "", "landscape description (overrides the job file)")
	f.StringSliceVar(&researchOpts.urls, "url", nil, "vendor URL to research (repeatable)")
	f.StringVar(&researchOpts.phases, "phases", "features,products,crawl", "comma-separated phases to run")
	f.BoolVar(&researchOpts.resume, "resume", false, "resume the crawl from a stored checkpoint")
	f.BoolVar(&researchOpts.notionFeatures, "notion-features", false, "load the feature rubric from the Notion database")
	rootCmd.AddCommand(researchCmd)
}
