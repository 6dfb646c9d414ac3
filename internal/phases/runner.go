package phases

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/jorge-barreto/wreckit/internal/agent"
	"github.com/jorge-barreto/wreckit/internal/config"
	"github.com/jorge-barreto/wreckit/internal/gitint"
	"github.com/jorge-barreto/wreckit/internal/scope"
	"github.com/jorge-barreto/wreckit/internal/store"
)

// Runner bundles every collaborator a PhaseRunner needs: the repository
// and artifact stores, the agent driver, the scope enforcer, the git
// integration, and the engine configuration. One Runner is shared across
// every phase for a given process, the way the teacher's single Runner
// struct is shared across every phase dispatch.
type Runner struct {
	Repo      *store.Repository
	Artifacts *store.ArtifactStore
	Agent     *agent.Driver
	Scope     *scope.Enforcer
	Git       *gitint.GitIntegration
	PR        gitint.PRClient
	Config    *config.Config
	Logger    *zap.Logger

	ProjectRoot string
	PromptsDir  string
}

// New builds a Runner from its collaborators.
func New(repo *store.Repository, artifacts *store.ArtifactStore, drv *agent.Driver, sc *scope.Enforcer, git *gitint.GitIntegration, pr gitint.PRClient, cfg *config.Config, logger *zap.Logger, projectRoot, promptsDir string) *Runner {
	return &Runner{
		Repo: repo, Artifacts: artifacts, Agent: drv, Scope: sc, Git: git, PR: pr,
		Config: cfg, Logger: logger, ProjectRoot: projectRoot, PromptsDir: promptsDir,
	}
}

// baseTimeout returns the configured agent timeout as a duration.
func (r *Runner) baseTimeout() time.Duration {
	return time.Duration(r.Config.TimeoutSeconds) * time.Second
}

// runAgent is a thin wrapper around Agent.Run that fills in the command
// and model from r.Config.Agent and logs the outcome, the way every
// teacher dispatch path ends in a single structured log line.
func (r *Runner) runAgent(ctx context.Context, workDir, prompt string, timeout time.Duration, allowed []string, servers []agent.ToolServer, onEvent func(agent.Event)) (*agent.Result, error) {
	res, err := r.Agent.Run(ctx, agent.RunConfig{
		Command:      r.Config.Agent.Command,
		Prompt:       prompt,
		WorkDir:      workDir,
		Timeout:      timeout,
		AllowedTools: allowed,
		ToolServers:  servers,
		Model:        r.Config.Agent.Model,
		OnEvent:      onEvent,
	})
	if err != nil {
		r.Logger.Error("agent invocation failed", zap.Error(err))
		return nil, err
	}
	r.Logger.Info("agent invocation finished",
		zap.Bool("success", res.Success),
		zap.Int("exit_code", res.ExitCode),
		zap.Bool("timed_out", res.TimedOut))
	return res, nil
}
