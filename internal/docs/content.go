package docs

var topics = []Topic{
	{
		Name:    "quickstart",
		Title:   "Quick Start",
		Summary: "Getting started with wreckit",
		Content: topicQuickstart,
	},
	{
		Name:    "config",
		Title:   "Configuration Reference",
		Summary: "config.json schema, fields, and defaults",
		Content: topicConfig,
	},
	{
		Name:    "phases",
		Title:   "Pipeline Phases",
		Summary: "The six fixed phases and what each one does",
		Content: topicPhases,
	},
	{
		Name:    "variables",
		Title:   "Template Variables",
		Summary: "Built-in vars, project context, and environment variables",
		Content: topicVariables,
	},
	{
		Name:    "orchestrator",
		Title:   "Execution Model",
		Summary: "State machine, critique loop-back, and concurrent items",
		Content: topicOrchestrator,
	},
	{
		Name:    "items",
		Title:   "Items Directory",
		Summary: "Structure of .wreckit/items/<id>/ and what gets saved",
		Content: topicItems,
	},
}

const topicQuickstart = `Quick Start
===========

1. Initialize a project:

    cd your-project
    wreckit init

   This creates .wreckit/config.json and .wreckit/prompts/*.md.

2. Add a work item:

    wreckit add "Add retry backoff to the webhook sender"

   This prints the new item's id and creates .wreckit/items/<id>/.

3. Drive it through the pipeline:

    wreckit run <id>

4. Check progress:

    wreckit status <id>

CLI Flags
---------

  wreckit add <title>            Create a new item in the idea state
  wreckit run <id>                Drive an item forward, phase by phase
  wreckit run <id> --force        Force the current phase to re-run
  wreckit run <id> --max N        Stop after N phase advances
  wreckit status                  List every known item and its state
  wreckit status <id>              Show one item's state, PRD, and artifacts
  wreckit init                    Scaffold .wreckit/
  wreckit docs                    List documentation topics
  wreckit docs <topic>            Show a documentation topic
`

const topicConfig = `Configuration Reference
=======================

Engine configuration lives in .wreckit/config.json, overlaid with
WRECKIT_* environment variables.

Top-level fields
----------------

  base_branch        string   Required. Branch PRs target and direct merges land on.
  branch_prefix       string   Prefix for per-item branch names. Default: "wreckit/".
  merge_mode          string   "pr" or "direct". Default: "pr".
  max_iterations      int      Implement-phase story loop cap. Default: 10.
  timeout_seconds     int      Per-agent-invocation timeout. Default: 600.
  pr_checks           object   Required. See below.
  branch_cleanup      object   Post-merge branch deletion behavior.
  agent               object   Required. command and model passed to the agent driver.

pr_checks fields
----------------

  allow_unsafe_direct_merge   bool      Must be true to use merge_mode "direct".
  allowed_remote_patterns     []string  Required, non-empty. Regular expressions;
                                        the origin remote URL must match one.
  checks                      []object  Pre-push quality gates: {name, run, enabled}.

branch_cleanup fields
----------------------

  enabled         bool   Delete the item branch after merge/close.
  delete_remote   bool   Also delete the remote-tracking branch.

Environment Overlay (WRECKIT_* prefix)
---------------------------------------

Any top-level scalar field can be overridden without editing config.json:

  WRECKIT_BASE_BRANCH
  WRECKIT_BRANCH_PREFIX
  WRECKIT_MERGE_MODE
  WRECKIT_MAX_ITERATIONS
  WRECKIT_TIMEOUT_SECONDS

Checks Sidecar
--------------

An optional .wreckit/checks.yaml can supplement pr_checks.checks without
touching config.json:

  checks:
    - name: lint
      run: golangci-lint run

Entries there are appended after anything declared directly in
config.json.
`

const topicPhases = `Pipeline Phases
===============

Every item moves through a fixed six-phase pipeline. Unlike a
project-configured workflow, the phase list and ordering are not
customizable — only the prompt text and quality-gate checks are.

research (idea -> researched)
------------------------------

Read-only: explores the codebase, produces research.md. Tool allow-list:
Read, Glob, Grep, WebFetch, WebSearch.

plan (researched -> planned)
------------------------------

Read-only plus Write and one capture tool: produces plan.md and calls
save_prd with a structured list of user stories. Tool allow-list adds
Write and save_prd.

implement (planned -> implementing)
--------------------------------------

Read-write: works through the PRD's pending stories one at a time,
calling update_story_status after each. Tool allow-list: Read, Write,
Edit, Glob, Grep, Bash, git_status, git_diff, update_story_status.

critique (implementing -> critique, or back to planned)
----------------------------------------------------------

Read-only: reviews the diff against the plan and responds with a
{"status", "reason", "critique"} verdict. A rejection sends the item
back to planned rather than failing the run — see "Critique loop-back"
below. An agent failure or unparseable verdict also self-heals back to
planned.

pr (critique -> in_pr, or critique -> done in direct merge mode)
--------------------------------------------------------------------

Runs pre-push quality gates and git preflight checks, then either opens
a pull request (merge_mode "pr") or merges directly to base (merge_mode
"direct", requires allow_unsafe_direct_merge).

complete (in_pr -> done)
--------------------------

No agent invocation. Queries the PR's merge status and, once merged,
records completion metadata and cleans up the branch.
`

const topicVariables = `Template Variables
==================

Variables are expanded in phase prompt templates using $VAR or ${VAR}
syntax.

Built-in Variables
------------------

  $ITEM_ID           The item's id.
  $ITEM_TITLE        The item's title.
  $ITEM_SECTION      The item's section, if set.
  $PROJECT_ROOT      Absolute path to the project root.
  $ITEM_DIR          Absolute path to .wreckit/items/<id>/.
  $PROJECT_CONTEXT   A rendered directory tree, well-known file contents,
                     and recent git log — gathered fresh for research and
                     plan prompts.

The implement prompt additionally receives:

  $STORY_ID
  $STORY_TITLE
  $STORY_ACCEPTANCE_CRITERIA

If a variable is not in the built-in set, expansion falls back to the
process environment.
`

const topicOrchestrator = `Execution Model
===============

wreckit drives each item through its pipeline as a small state machine:
a fixed state determines the next phase, the phase runs, and on success
the state advances. There is no configurable branching — the state
table is spec-fixed, not declared per project.

Critique Loop-Back
-------------------

Unlike a linear pipeline, the state machine has one backward edge:
critique can return an item from implementing to planned. This happens
when:

- the critic rejects the diff (status "rejected" in its verdict), or
- the critique agent fails to run, or its output cannot be parsed as a
  verdict at all.

In every case the phase reports success and the item lands back in
planned, so the orchestrator's next iteration naturally re-enters
implement. There is no separate retry-count bookkeeping for this loop —
it runs until critique approves or a human intervenes.

Concurrent Items
------------------

A single item is always driven sequentially — one phase completes
before the next starts. Multiple distinct items can be driven
concurrently; the orchestrator bounds how many run in parallel via
errgroup.SetLimit and never lets one item's failure cancel the others.

Resuming
--------

Progress is durable: item.json and prd.json are saved atomically after
every phase, so a later wreckit run <id> picks up exactly from the
current state. There is no separate resume flag — the next phase is
always derived from the item's persisted state.
`

const topicItems = `Items Directory
===============

wreckit creates a .wreckit/items/<id>/ directory in the project root per
item. This directory is where phase prompts read and write artifacts —
phases pass context through files here, not through conversational
memory carried between invocations.

Directory Structure
--------------------

  .wreckit/items/<id>/
  ├── item.json        Current state, branch, PR info, timestamps
  ├── prd.json          User stories and their status
  ├── research.md       Research phase output
  ├── plan.md           Plan phase output
  └── progress.log      Append-only log of phase events

item.json
---------

The item's id, title, section, overview, state, branch, PR url/number,
last error, and completion timestamps. Written atomically after every
phase.

prd.json
--------

The branch name and the list of user stories (id, title, acceptance
criteria, priority, status). Updated by the plan phase's save_prd call
and the implement phase's update_story_status calls.

progress.log
-------------

An append-only, ISO-8601-timestamped log of phase events: story
transitions during implement, critique approvals/rejections, and
self-heal loop-backs. Unlike item.json and prd.json, this file is never
rewritten atomically — each phase only appends to it.
`

// SchemaReference returns the combined config schema, phase list, and
// variables documentation suitable for embedding in prompts.
func SchemaReference() string {
	return topicConfig + "\n\n" + topicPhases + "\n\n" + topicVariables
}
