package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/PSthelyBlog/gamesmith/internal/agent"
	"github.com/PSthelyBlog/gamesmith/internal/approval"
	"github.com/PSthelyBlog/gamesmith/internal/config"
	"github.com/PSthelyBlog/gamesmith/internal/logging"
	"github.com/PSthelyBlog/gamesmith/internal/metrics"
	"github.com/PSthelyBlog/gamesmith/internal/publish"
	"github.com/PSthelyBlog/gamesmith/internal/qa"
	"github.com/PSthelyBlog/gamesmith/internal/telemetry"
	"github.com/PSthelyBlog/gamesmith/internal/workflow"
	"go.uber.org/zap"
)

// runtime bundles everything a command needs to drive a workflow.
type runtime struct {
	cfg       *config.Config
	log       *zap.Logger
	store     *workflow.Store
	db        *telemetry.DB
	collector *metrics.Collector
}

// newRuntime loads and validates config, then opens the store, the
// telemetry database, and the logger. Validation failures abort before any
// phase can execute.
func newRuntime() (*runtime, func(), error) {
	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.Load(configPath)
	} else {
		cfg, err = config.LoadDefault()
	}
	if err != nil {
		return nil, nil, err
	}

	if errs := config.Validate(cfg); len(errs) > 0 {
		msgs := make([]string, len(errs))
		for i, e := range errs {
			msgs[i] = e.Error()
		}
		return nil, nil, fmt.Errorf("invalid config:\n  %s", strings.Join(msgs, "\n  "))
	}

	log, err := logging.New(logging.Options{
		Level: cfg.Workflow.LogLevel,
		File:  cfg.Workflow.LogFile,
	})
	if err != nil {
		return nil, nil, err
	}

	store := workflow.NewStore(cfg.Workflow.StateDir)

	db, err := telemetry.Open(cfg.Workflow.DBPath)
	if err != nil {
		_ = log.Sync()
		return nil, nil, err
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		_ = log.Sync()
		return nil, nil, err
	}

	rt := &runtime{
		cfg:       cfg,
		log:       log,
		store:     store,
		db:        db,
		collector: metrics.NewCollector(),
	}
	cleanup := func() {
		db.Close()
		_ = log.Sync()
	}
	return rt, cleanup, nil
}

// approvalGate picks the gate implementation from config.
func (rt *runtime) approvalGate() approval.Gate {
	if rt.cfg.Workflow.Approvals.AutoApprove {
		return approval.AutoGate{}
	}
	return &approval.TerminalGate{In: os.Stdin, Out: os.Stderr}
}

// newOrchestrator assembles an orchestrator with the built-in hooks and the
// standard phase executors.
func (rt *runtime) newOrchestrator() *workflow.Orchestrator {
	w := rt.cfg.Workflow

	gates := make(map[workflow.Phase]bool)
	for _, g := range w.Approvals.Gates {
		gates[workflow.Phase(g)] = true
	}

	builtins := []workflow.Hook{
		&workflow.CheckpointHook{Store: rt.store},
		&workflow.LoggingHook{Log: rt.log},
		&workflow.PerformanceHook{Collector: rt.collector, DB: rt.db, Log: rt.log},
		&workflow.ApprovalHook{
			Gate:    rt.approvalGate(),
			Gates:   gates,
			Timeout: config.Duration(w.Approvals.Timeout, time.Hour),
		},
	}

	orch := workflow.NewOrchestrator(rt.store, rt.log, builtins)
	orch.SetReworkOnQAFail(w.QA.ReworkOnFail)

	coder := agent.NewCLIAgent(agent.CLIOpts{
		Name:         "coder",
		Command:      w.Agent.Command,
		Model:        w.Agent.Model,
		Flags:        w.Agent.Flags,
		AllowedTools: w.Agent.AllowedTools,
	}, rt.log)
	agentTimeout := config.Duration(w.Agent.Timeout, 30*time.Minute)

	orch.SetExecutor(workflow.PhaseInit, rt.initExecutor())
	orch.SetExecutor(workflow.PhaseDesign, rt.designExecutor(coder, agentTimeout))
	orch.SetExecutor(workflow.PhaseBuild, rt.buildExecutor(coder, agentTimeout))
	orch.SetExecutor(workflow.PhaseQA, rt.qaExecutor())
	orch.SetExecutor(workflow.PhasePublish, rt.publishExecutor())
	return orch
}

// initExecutor prepares the game directory.
func (rt *runtime) initExecutor() workflow.PhaseFunc {
	return func(ctx context.Context, st *workflow.State) error {
		dir := rt.cfg.Workflow.Game.Dir
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create game dir: %w", err)
		}
		st.AddArtifact("game_dir", dir)
		_ = rt.db.LogRunEvent(st.ID, "created", string(st.Phase), st.Prompt)
		return nil
	}
}

// designExecutor runs the design agent and stores the design document.
func (rt *runtime) designExecutor(coder agent.Agent, timeout time.Duration) workflow.PhaseFunc {
	return func(ctx context.Context, st *workflow.State) error {
		res, err := coder.Execute(ctx, agent.Task{
			Prompt:  agent.DesignPrompt(st.Prompt, st.Engine),
			Dir:     rt.cfg.Workflow.Game.Dir,
			Timeout: timeout,
		})
		if err != nil {
			return err
		}

		var design agent.GameDesign
		if err := agent.ExtractJSON(res.Output, &design); err != nil {
			return fmt.Errorf("design output: %w", err)
		}

		path := filepath.Join(rt.cfg.Workflow.Game.Dir, "design.json")
		if err := writeFileJSON(path, design); err != nil {
			return err
		}
		st.AddArtifact("gdd", path)
		rt.log.Info("design complete", zap.String("title", design.Title))
		return nil
	}
}

// buildExecutor runs the coding agent against the design document. A run
// that came back over the qa→build edge gets the fix prompt instead.
func (rt *runtime) buildExecutor(coder agent.Agent, timeout time.Duration) workflow.PhaseFunc {
	return func(ctx context.Context, st *workflow.State) error {
		gdd, ok := st.Artifacts["gdd"]
		if !ok {
			return fmt.Errorf("no design document artifact; design phase incomplete")
		}
		prompt := agent.BuildPrompt(gdd, st.Engine)
		if report, ok := st.Artifacts["qa_report"]; ok {
			prompt = agent.FixPrompt(report)
		}
		_, err := coder.Execute(ctx, agent.Task{
			Prompt:  prompt,
			Dir:     rt.cfg.Workflow.Game.Dir,
			Timeout: timeout,
		})
		if err != nil {
			return err
		}
		st.AddArtifact("build_dir", rt.cfg.Workflow.Game.Dir)
		return nil
	}
}

// qaExecutor runs the full QA battery and records the outcome.
func (rt *runtime) qaExecutor() workflow.PhaseFunc {
	return func(ctx context.Context, st *workflow.State) error {
		w := rt.cfg.Workflow
		runner := qa.NewRunner(rt.log)
		report, err := runner.Run(ctx, qa.Options{
			GameDir:        w.Game.Dir,
			ServerCommand:  w.QA.ServerCommand,
			ServerArgs:     w.QA.ServerArgs,
			Port:           w.QA.Port,
			StartupTimeout: config.Duration(w.QA.StartupTimeout, time.Minute),
			ExtraIgnore:    w.QA.IgnoreConsole,
			SkipPerf:       w.QA.SkipPerf,
		})
		if report != nil {
			recordQA(rt, st, report)
		}
		return err
	}
}

// recordQA stores report artifacts and telemetry for a finished QA run.
func recordQA(rt *runtime, st *workflow.State, report *qa.Report) {
	dir := filepath.Join(rt.cfg.Workflow.Game.Dir, "qa-reports")
	st.AddArtifact("qa_report", dir)

	avgFPS := 0.0
	loadMs := int64(0)
	if report.Performance != nil {
		avgFPS = report.Performance.AvgFPS
		loadMs = report.Performance.LoadTimeMs
	}
	if err := rt.db.LogQARun(st.ID, string(report.OverallStatus),
		report.Counts[qa.StatusPassed], report.Counts[qa.StatusFailed],
		report.Counts[qa.StatusSkipped], report.Counts[qa.StatusError],
		avgFPS, loadMs); err != nil {
		rt.log.Warn("record qa run", zap.Error(err))
	}
}

// publishExecutor pushes the build to itch.io when a target is configured.
func (rt *runtime) publishExecutor() workflow.PhaseFunc {
	return func(ctx context.Context, st *workflow.State) error {
		p := rt.cfg.Workflow.Publish
		if p.Target == "" {
			rt.log.Info("no publish target configured, skipping upload")
			return nil
		}

		var api *publish.Client
		if p.APIKeyEnv != "" {
			if key := os.Getenv(p.APIKeyEnv); key != "" {
				api = publish.NewClient(key)
			}
		}

		pub := publish.NewPublisher(api, rt.log)
		if err := pub.Push(ctx, rt.cfg.Workflow.Game.Dir, p.Target, p.Channel); err != nil {
			return err
		}
		st.AddArtifact("published", p.Target+":"+p.Channel)
		return nil
	}
}
