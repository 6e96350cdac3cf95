package application

import (
	"context"
	"fmt"

	"github.com/bnema/opsbot/internal/domain"
	"github.com/bnema/opsbot/internal/logger"
)

// Runner is the driver layer: it turns a manifest into one harness session.
type Runner struct {
	credentials *CredentialService
	harness     *Harness
	executor    *Executor
	log         logger.Logger
}

func NewRunner(credentials *CredentialService, harness *Harness, executor *Executor, log logger.Logger) *Runner {
	if log == nil {
		log = logger.NewNop()
	}
	return &Runner{credentials: credentials, harness: harness, executor: executor, log: log}
}

func (r *Runner) Executor() *Executor {
	return r.executor
}

// Run validates the manifest, loads the bot token for its identity and runs
// every action in a single session. Errors returned here happened before any
// connection was attempted; action failures are reported in the Result.
// The manifest's continue_on_error adds to opts.
func (r *Runner) Run(ctx context.Context, manifest domain.Manifest, opts RunOptions) (Result, error) {
	if err := manifest.Validate(); err != nil {
		return Result{}, fmt.Errorf("invalid manifest: %w", err)
	}

	steps := r.executor.Steps(manifest.Actions)
	opts.ContinueOnError = opts.ContinueOnError || manifest.ContinueOnError
	return r.RunSteps(ctx, manifest.Identity, manifest.RequiredIntents(), opts, steps...)
}

// RunSteps runs prepared steps as identity. Drivers use it for steps that are
// not plain actions, like category tree deletion.
func (r *Runner) RunSteps(ctx context.Context, identity domain.Identity, intents domain.IntentSet, opts RunOptions, steps ...Step) (Result, error) {
	identity, err := domain.ParseIdentity(string(identity))
	if err != nil {
		return Result{}, err
	}

	credentials, err := r.credentials.Load(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("load credentials: %w", err)
	}
	token, err := credentials.BotToken(identity)
	if err != nil {
		return Result{}, err
	}

	r.log.Debug("running steps", logger.String("identity", string(identity)), logger.Int("steps", len(steps)))
	return r.harness.RunActions(ctx, token, intents, opts, steps...), nil
}

// Plan is what a manifest would do, computed without connecting.
type Plan struct {
	Name            string          `json:"name,omitempty"`
	Identity        domain.Identity `json:"identity"`
	Intents         []string        `json:"intents"`
	ContinueOnError bool            `json:"continue_on_error"`
	Actions         []PlannedAction `json:"actions"`
}

type PlannedAction struct {
	Index   int               `json:"index"`
	Type    domain.ActionType `json:"type"`
	Summary string            `json:"summary"`
}

func (r *Runner) Plan(manifest domain.Manifest) (Plan, error) {
	return PlanManifest(manifest)
}

func PlanManifest(manifest domain.Manifest) (Plan, error) {
	if err := manifest.Validate(); err != nil {
		return Plan{}, fmt.Errorf("invalid manifest: %w", err)
	}
	identity, _ := domain.ParseIdentity(string(manifest.Identity))

	plan := Plan{
		Name:            manifest.Name,
		Identity:        identity,
		Intents:         manifest.RequiredIntents().Names(),
		ContinueOnError: manifest.ContinueOnError,
	}
	for i, action := range manifest.Actions {
		plan.Actions = append(plan.Actions, PlannedAction{Index: i + 1, Type: action.Type(), Summary: Describe(action)})
	}
	return plan, nil
}

// Describe renders a one-line summary of action.
func Describe(action domain.Action) string {
	switch a := action.(type) {
	case domain.CreateTextChannel:
		if !a.Category.ID.IsZero() {
			return fmt.Sprintf("create text channel %q in %s", a.Name, a.Category)
		}
		return fmt.Sprintf("create text channel %q in %s", a.Name, a.Guild)
	case domain.CreateForumChannel:
		return fmt.Sprintf("create forum %q in %s", a.Name, a.Parent)
	case domain.CreateCategory:
		return fmt.Sprintf("create category %q in %s", a.Name, a.Guild)
	case domain.RenameEntity:
		return fmt.Sprintf("rename %s to %q", a.Target, a.Name)
	case domain.DeleteEntity:
		if a.MissingOK {
			return fmt.Sprintf("delete %s if present", a.Target)
		}
		return fmt.Sprintf("delete %s", a.Target)
	case domain.PostMessage:
		return fmt.Sprintf("post %d characters and %d files to %s", len([]rune(a.Content)), len(a.Files), a.Channel)
	case domain.EditMessage:
		return fmt.Sprintf("edit %s", a.Message)
	case domain.AddReaction:
		return fmt.Sprintf("react %s to %s", a.Emoji, a.Message)
	case domain.CreateForumThread:
		return fmt.Sprintf("open thread %q in %s", a.Title, a.Forum)
	case domain.ListForumThreads:
		if a.IncludeArchived {
			return fmt.Sprintf("list threads of %s including archived", a.Forum)
		}
		return fmt.Sprintf("list active threads of %s", a.Forum)
	case domain.ReadHistory:
		return fmt.Sprintf("read %d messages of %s %s", a.EffectiveLimit(), a.Channel, a.EffectiveOrder())
	case domain.SetCategoryOverwrites:
		return fmt.Sprintf("apply %d overwrites to %s", len(a.Overwrites), a.Category)
	default:
		return string(action.Type())
	}
}
