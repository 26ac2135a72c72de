// Package automl drives a pipeline search.
//
// Start validates the data and problem, runs the data checks, resolves the
// objectives and builds the splitter, algorithm and engine. No task runs
// until Step or RunToCompletion is called:
//
//	search, err := automl.Start(ctx, ds, automl.Config{
//	    Problem:    problem.New(problem.Binary),
//	    Objective:  "F1",
//	    MaxBatches: 3,
//	}, automl.WithLogger(log))
//	if err != nil {
//	    return err
//	}
//	defer search.Close()
//	if err := search.RunToCompletion(ctx); err != nil {
//	    return err
//	}
//	best, err := search.BestPipeline()
//
// Each Step evaluates one batch. Results are appended to the ledger in
// submission order once the whole batch resolved, so Rankings never sees a
// partial batch. Cancel stops the search at the next submission; the batch
// in flight is discarded.
//
// Only configuration and resource errors leave Start, Step and
// RunToCompletion. Failures of individual pipelines are recorded on their
// results.
package automl
