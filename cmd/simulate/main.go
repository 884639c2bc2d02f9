// Command simulate runs one G-EDF fault-tolerant multiprocessor schedule
// in-process, with no database, queue, or coordination dependency: load a
// task-set document, simulate it, print the feasibility verdict and a
// textual Gantt timeline, and optionally write the schedule document to a
// file.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"ftmgedf/internal/core"
	"ftmgedf/internal/fault"
	"ftmgedf/internal/loader"
	"ftmgedf/internal/scheduler"
	"ftmgedf/internal/timeline"
)

func main() {
	var (
		numCores          = flag.Int("cores", 4, "number of processing cores")
		numFaulty         = flag.Int("faulty", 1, "number of faulty cores")
		activeBackups     = flag.Int("active-backups", 0, "active backup replicas per release")
		lambdaC           = flag.Float64("lambda-c", 0.0005, "per-tick permanent failure probability")
		lambdaB           = flag.Float64("lambda-b", 0.02, "per-tick deactivation probability, bursty regime")
		lambdaR           = flag.Float64("lambda-r", 0.05, "per-tick deactivation probability, stable regime")
		burstyChance      = flag.Float64("bursty-chance", 0.3, "shapes regime sojourn lengths: higher values give longer bursty and shorter stable sojourns")
		faultPeriodScaler = flag.Int64("fault-period-scaler", 50, "multiplier applied to drawn regime sojourn lengths")
		seed              = flag.Uint64("seed", 1, "fault-generator RNG seed")
		out               = flag.String("out", "", "write the schedule document (JSON) to this path")
		renderBy          = flag.String("render", "core", "timeline layout: core, task, or none")
	)
	flag.Parse()

	path := "testdata/sample_taskset.json"
	if flag.NArg() > 0 {
		path = flag.Arg(0)
	}

	doc, err := loader.ParseFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "simulate: %v\n", err)
		os.Exit(1)
	}

	taskSet, err := loader.Build(doc, *activeBackups)
	if err != nil {
		fmt.Fprintf(os.Stderr, "simulate: %v\n", err)
		os.Exit(1)
	}

	cores := core.NewSet(*numCores, *numFaulty)
	faultParams := fault.Params{
		BurstyChance:      *burstyChance,
		FaultPeriodScaler: *faultPeriodScaler,
		LambdaC:           *lambdaC,
		LambdaB:           *lambdaB,
		LambdaR:           *lambdaR,
	}
	rng := fault.NewRNG(*seed)

	s := scheduler.New(taskSet, cores, faultParams, rng)
	rec := s.Run(int64(doc.StartTime), int64(doc.EndTime))

	timeline.Summary(os.Stdout, rec)

	switch *renderBy {
	case "core":
		timeline.RenderByCore(os.Stdout, rec, *numCores)
	case "task":
		timeline.RenderByTask(os.Stdout, rec, taskSet)
	case "none":
	default:
		fmt.Fprintf(os.Stderr, "simulate: unknown -render value %q\n", *renderBy)
		os.Exit(1)
	}

	if *out != "" {
		doc, err := json.MarshalIndent(rec, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "simulate: marshal schedule: %v\n", err)
			os.Exit(1)
		}
		if err := os.WriteFile(*out, doc, 0644); err != nil {
			fmt.Fprintf(os.Stderr, "simulate: write %s: %v\n", *out, err)
			os.Exit(1)
		}
	}

	if !rec.Feasible() {
		os.Exit(1)
	}
}
