package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	cli "github.com/urfave/cli/v3"

	"github.com/jorge-barreto/wreckit/internal/agent"
	"github.com/jorge-barreto/wreckit/internal/config"
	"github.com/jorge-barreto/wreckit/internal/docs"
	"github.com/jorge-barreto/wreckit/internal/gitint"
	"github.com/jorge-barreto/wreckit/internal/logging"
	"github.com/jorge-barreto/wreckit/internal/orchestrator"
	"github.com/jorge-barreto/wreckit/internal/phases"
	"github.com/jorge-barreto/wreckit/internal/scaffold"
	"github.com/jorge-barreto/wreckit/internal/scope"
	"github.com/jorge-barreto/wreckit/internal/store"
	"github.com/jorge-barreto/wreckit/internal/ux"
	"github.com/jorge-barreto/wreckit/internal/workitem"
)

func main() {
	app := &cli.Command{
		Name:        "wreckit",
		Usage:       "Autonomous item workflow engine",
		Description: "Run 'wreckit docs' for documentation on config, phases, and variables.",
		Commands: []*cli.Command{
			initCmd(),
			addCmd(),
			runCmd(),
			statusCmd(),
			docsCmd(),
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "%serror:%s %v\n", ux.Red, ux.Reset, err)
		os.Exit(1)
	}
}

func initCmd() *cli.Command {
	return &cli.Command{
		Name:  "init",
		Usage: "Initialize a new .wreckit/ directory with default config and prompts",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			dir, err := os.Getwd()
			if err != nil {
				return err
			}
			return scaffold.Init(dir)
		},
	}
}

func addCmd() *cli.Command {
	return &cli.Command{
		Name:      "add",
		Usage:     "Create a new item in the idea state",
		ArgsUsage: "<title>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "id", Usage: "Explicit item id (default: slug of title)"},
			&cli.StringFlag{Name: "section", Usage: "Optional grouping folder"},
			&cli.StringFlag{Name: "overview", Usage: "Free-text overview"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			title := strings.TrimSpace(cmd.Args().First())
			if title == "" {
				return fmt.Errorf("title argument is required")
			}

			projectRoot, err := findProjectRoot()
			if err != nil {
				return err
			}

			id := cmd.String("id")
			if id == "" {
				id = slugify(title)
			}
			if !workitem.ValidID(id) {
				return fmt.Errorf("item id %q is not valid (lowercase letters, digits, '-', '/')", id)
			}

			repo := store.New(filepath.Join(projectRoot, ".wreckit"))
			if existing, err := repo.LoadItem(id); err != nil {
				return fmt.Errorf("checking for existing item: %w", err)
			} else if existing != nil {
				return fmt.Errorf("item %q already exists", id)
			}

			if err := repo.EnsureItemDir(id); err != nil {
				return err
			}

			it := workitem.New(id, title, cmd.String("section"), cmd.String("overview"), time.Now())
			if err := repo.SaveItem(it, time.Now()); err != nil {
				return err
			}

			fmt.Printf("%s%s%s created in state %s\n", ux.Bold, id, ux.Reset, it.State)
			return nil
		},
	}
}

func runCmd() *cli.Command {
	return &cli.Command{
		Name:      "run",
		Usage:     "Drive an item forward through the pipeline",
		ArgsUsage: "<id>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "force", Usage: "Force the current phase to re-run"},
			&cli.IntFlag{Name: "max", Usage: "Stop after N phase advances (default: unbounded)"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if os.Getenv("CLAUDECODE") != "" {
				return fmt.Errorf("wreckit cannot run inside Claude Code (CLAUDECODE env var is set). Run from a regular terminal")
			}

			id := cmd.Args().First()
			if id == "" {
				return fmt.Errorf("id argument is required")
			}

			projectRoot, err := findProjectRoot()
			if err != nil {
				return err
			}

			orch, err := buildOrchestrator(ctx, projectRoot)
			if err != nil {
				return err
			}

			item, err := orch.Repo.LoadItem(id)
			if err != nil {
				return fmt.Errorf("loading item: %w", err)
			}
			if item == nil {
				return fmt.Errorf("item %q not found", id)
			}

			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
			defer stop()

			final, err := orch.Run(ctx, id, int(cmd.Int("max")), cmd.Bool("force"))
			if err != nil {
				ux.ResumeHint(id)
				return err
			}

			if final.State != workitem.StateDone {
				ux.ResumeHint(id)
			}

			return nil
		},
	}
}

func statusCmd() *cli.Command {
	return &cli.Command{
		Name:      "status",
		Usage:     "Show item state, PRD, and artifacts",
		ArgsUsage: "[id]",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			projectRoot, err := findProjectRoot()
			if err != nil {
				return err
			}

			repo := store.New(filepath.Join(projectRoot, ".wreckit"))

			id := cmd.Args().First()
			if id == "" {
				return listAllItems(repo)
			}

			item, err := repo.LoadItem(id)
			if err != nil {
				return fmt.Errorf("loading item: %w", err)
			}
			if item == nil {
				return fmt.Errorf("item %q not found", id)
			}

			ux.RenderStatus(repo, item)
			return nil
		},
	}
}

func listAllItems(repo *store.Repository) error {
	itemsDir := filepath.Join(repo.Root, "items")
	entries, err := os.ReadDir(itemsDir)
	if err != nil {
		if os.IsNotExist(err) {
			fmt.Println("no items yet — run 'wreckit add <title>'")
			return nil
		}
		return err
	}

	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		item, err := repo.LoadItem(e.Name())
		if err != nil || item == nil {
			continue
		}
		fmt.Printf("  %-24s %-14s %s\n", item.ID, item.State, item.Title)
	}
	return nil
}

func docsCmd() *cli.Command {
	return &cli.Command{
		Name:      "docs",
		Usage:     "Show documentation",
		ArgsUsage: "[topic]",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			name := cmd.Args().First()
			if name == "" {
				fmt.Print("\nAvailable topics:\n\n")
				for _, t := range docs.All() {
					fmt.Printf("  %-14s %s\n", t.Name, t.Summary)
				}
				fmt.Println("\nRun 'wreckit docs <topic>' to read a topic.")
				return nil
			}
			t, err := docs.Get(name)
			if err != nil {
				return err
			}
			fmt.Print(t.Content)
			return nil
		},
	}
}

// buildOrchestrator wires every collaborator a phases.Runner needs from
// the project's .wreckit/ directory, the way the teacher's runCmd wires
// its own Runner from cfg/state/env before dispatching.
func buildOrchestrator(ctx context.Context, projectRoot string) (*orchestrator.Orchestrator, error) {
	wreckitDir := filepath.Join(projectRoot, ".wreckit")
	configPath := filepath.Join(wreckitDir, "config.json")
	checksPath := filepath.Join(wreckitDir, "checks.yaml")

	cfg, err := config.Load(configPath, checksPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	repo := store.New(wreckitDir)
	artifacts := store.NewArtifactStore(repo)
	drv := agent.New()
	sc := scope.New(projectRoot)
	git := gitint.New(projectRoot)
	pr := gitint.NewPRClient(ctx, git)

	logger, err := logging.New(wreckitDir, false)
	if err != nil {
		return nil, fmt.Errorf("setting up logging: %w", err)
	}

	runner := phases.New(repo, artifacts, drv, sc, git, pr, cfg, logger, projectRoot, filepath.Join(wreckitDir, "prompts"))
	return orchestrator.New(runner, repo, logger), nil
}

// findProjectRoot walks up from cwd looking for .wreckit/config.json.
func findProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		configPath := filepath.Join(dir, ".wreckit", "config.json")
		if _, err := os.Stat(configPath); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("no .wreckit/config.json found (searched from cwd to root)")
		}
		dir = parent
	}
}

// slugify derives a valid item id from a free-text title: lowercase,
// non-alphanumerics collapsed to single '-'.
func slugify(title string) string {
	var b strings.Builder
	prevDash := false
	for _, r := range strings.ToLower(title) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			prevDash = false
		default:
			if !prevDash && b.Len() > 0 {
				b.WriteByte('-')
				prevDash = true
			}
		}
	}
	return strings.TrimRight(b.String(), "-")
}
