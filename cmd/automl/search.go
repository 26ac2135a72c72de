package main

import (
	"context"
	"encoding/json"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/kbukum/automl/automl"
	"github.com/kbukum/automl/bootstrap"
	"github.com/kbukum/automl/config"
	"github.com/kbukum/automl/data"
	"github.com/kbukum/automl/errors"
	"github.com/kbukum/automl/evaluation"
	"github.com/kbukum/automl/ledger"
	"github.com/kbukum/automl/logger"
	"github.com/kbukum/automl/util"
	"github.com/kbukum/automl/version"
)

type searchFlags struct {
	data     string
	target   string
	resume   string
	describe bool
}

// searchOutput is written to stdout when the search ends.
type searchOutput struct {
	SearchID   string             `json:"search_id"`
	StopReason automl.StopReason  `json:"stop_reason"`
	Batches    int                `json:"batches"`
	Evaluated  int                `json:"evaluated"`
	Best       *evaluation.Result `json:"best,omitempty"`
}

func newSearchCmd(root *rootFlags) *cobra.Command {
	flags := &searchFlags{}
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Run a pipeline search over a CSV dataset",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSearch(cmd.Context(), cmd.OutOrStdout(), root, flags)
		},
	}
	cmd.Flags().StringVar(&flags.data, "data", "", "CSV file with a header row")
	cmd.Flags().StringVar(&flags.target, "target", "target", "name of the target column")
	cmd.Flags().StringVar(&flags.resume, "resume", "", "search id to resume from the ledger store")
	cmd.Flags().BoolVar(&flags.describe, "describe", false, "log the folds of the best pipeline")
	_ = cmd.MarkFlagRequired("data")
	return cmd
}

func runSearch(ctx context.Context, stdout io.Writer, root *rootFlags, flags *searchFlags) error {
	cfg, err := root.load()
	if err != nil {
		return err
	}
	app, err := bootstrap.NewApp(cfg)
	if err != nil {
		return err
	}
	if app.Version == "" {
		app.Version = version.Short()
	}
	searchCfg, err := automl.ConfigFrom(cfg)
	if err != nil {
		return err
	}
	if flags.resume != "" {
		if cfg.Ledger.Store == config.StoreNone {
			return errors.Configuration("--resume needs a ledger store")
		}
		if _, err := util.ValidateUUID("resume", flags.resume); err != nil {
			return err
		}
	}
	in := openInfra(app, true)

	app.Summary.TrackSetting("problem", string(searchCfg.Problem.Type))
	app.Summary.TrackSetting("objective", cfg.Search.Objective)
	app.Summary.TrackSetting("engine", cfg.Engine.Kind)
	app.Summary.TrackSetting("max batches", strconv.Itoa(cfg.Search.MaxBatches))

	return app.RunTask(ctx, func(ctx context.Context) error {
		ds, err := data.ReadCSVFile(flags.data, flags.target)
		if err != nil {
			return err
		}
		log := app.Logger
		opts := []automl.Option{
			automl.WithLogger(log),
			automl.WithRedis(in.redis),
			automl.WithMetrics(in.metrics),
			automl.WithCallbacks(automl.Callbacks{
				OnError: func(err error) {
					log.Error("Search failed", logger.ErrorFields("search", err))
				},
			}),
		}

		var s *automl.Search
		if flags.resume != "" {
			s, err = automl.ResumeFrom(ctx, in.store, flags.resume, ds, searchCfg, opts...)
		} else {
			s, err = automl.Start(ctx, ds, searchCfg, opts...)
		}
		if err != nil {
			return err
		}
		defer s.Close()

		if err := stepAndSave(ctx, s, in.store, log); err != nil {
			return err
		}
		if flags.describe {
			if best, err := s.BestResult(); err == nil {
				_, _ = s.Describe(best.ID)
			}
		}
		return writeOutput(stdout, s)
	})
}

// stepAndSave runs the search a batch at a time, saving after each batch
// so an interrupted search can be resumed.
func stepAndSave(ctx context.Context, s *automl.Search, store ledger.Store, log *logger.Logger) error {
	for {
		done, err := s.Step(ctx)
		if err != nil {
			return err
		}
		if store != nil {
			// a cancelled context must not lose the last completed batch
			if err := s.Save(context.WithoutCancel(ctx), store); err != nil {
				log.Warn("Saving search failed", logger.ErrorFields("save", err))
			}
		}
		if done {
			break
		}
	}
	s.Rankings().Log(log, s.Objective().Name())
	return nil
}

func writeOutput(w io.Writer, s *automl.Search) error {
	st := s.State()
	out := searchOutput{
		SearchID:   s.ID(),
		StopReason: st.StopReason,
		Batches:    st.Batch,
		Evaluated:  len(s.Results()),
	}
	if best, err := s.BestResult(); err == nil {
		out.Best = best.WithoutFitted()
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
