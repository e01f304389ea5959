// Package hyperopt provides a black-box hyperparameter optimization engine
// built around an ask/tell protocol. A caller defines a search space, picks
// a direction (minimize or maximize, single or multi-objective), drives the
// ask/tell loop against a Study, and the engine concentrates sampling on
// promising regions over time using pluggable samplers.
//
// # Features
//
// The package includes the following key components:
//
//   - Study coordinator: the ask/tell state machine, trial registry,
//     locking discipline, warm-start import, and best/Pareto queries.
//   - Samplers: Random, Tree-structured Parzen Estimator (TPE) and CMA-ES,
//     all behind a single Sampler interface with an optional batch
//     capability.
//   - Multi-objective machinery: dominance checks, Pareto front extraction
//     and crowding distance, usable directly or through a study.
//   - Pruning hooks (NopPruner, MedianPruner) and constraint handling for
//     early-stopping and feasibility gating.
//   - Population-Based Training (PBT): exploit/explore evolution over a
//     population of members.
//
// # Ask/Tell
//
// The study proposes parameters via Ask, the caller evaluates its own
// (opaque) objective, and reports the result via Tell:
//
//	space := hyperopt.NewSearchSpace(
//	    hyperopt.NewFloatRange("learning_rate", 1e-4, 1e-1, true),
//	    hyperopt.NewIntRange("batch_size", 8, 256, 8),
//	)
//
//	study := hyperopt.NewTPEStudy("tune", space, hyperopt.Minimize, 1)
//
//	for i := 0; i < 50; i++ {
//	    trial := study.Ask()
//	    value := objective(trial.Parameters())
//	    study.Tell(trial.Number(), value)
//	}
//
//	best, ok := study.BestTrial()
//
// # Samplers
//
// Random is the baseline uniform sampler. TPE fits good/bad density
// estimates from trial history and proposes candidates maximizing a
// density ratio. CMA-ES adapts a multivariate normal over the continuous
// sub-space and delegates categorical dimensions to Random. All three
// implement both Sampler and BatchSampler.
//
// # Thread safety
//
// Study serializes every mutating and read operation behind a single
// mutex. The one exception is Trial.Report, which may be called from
// evaluation goroutines without holding the study's lock - the
// intermediate-value map carries its own fine-grained lock.
//
// # Snapshots
//
// The wire format for persisting a study (Complete and Pruned trials only)
// lives in the snapshot subpackage; snapshot.Marshal and snapshot.Unmarshal
// round-trip a Study through it.
package hyperopt
