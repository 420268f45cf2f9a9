package playbook

import (
	"context"
	"log/slog"
	"strings"

	"github.com/BTreeMap/Lantern/internal/genai"
	"github.com/BTreeMap/Lantern/internal/models"
	"github.com/BTreeMap/Lantern/internal/prompts"
	"github.com/BTreeMap/Lantern/internal/resources"
	"github.com/BTreeMap/Lantern/internal/safety"
	"github.com/BTreeMap/Lantern/internal/util"
)

// Fixed engine text.
const (
	QuickResetTitle = "Quick reset"
	PlanValidation  = "Here is a mini plan you can try."
)

// Searcher is the resource lookup used to attach supporting resources.
type Searcher interface {
	Search(query string, limit int) []resources.Record
	IsLoaded() bool
}

// Result is the outcome of one engine turn.
type Result struct {
	PlaybookID     string               `json:"playbook_id"`
	Stage          models.Stage         `json:"stage"`
	Validation     string               `json:"validation"`
	TriageQuestion *string              `json:"triage_question"`
	ActionTitle    string               `json:"action_title"`
	Actions        []string             `json:"actions"`
	ResourceIDs    []string             `json:"resource_ids"`
	Resources      []resources.Record   `json:"resources"`
	NextState      models.PlaybookState `json:"next_state"`
}

// Engine runs playbook turns. It holds no per-session state: the caller passes the
// previous state in and persists Result.NextState. Safe for concurrent use.
type Engine struct {
	registry     *Registry
	directory    Searcher
	completer    genai.Completer
	picker       *util.Picker
	casualPrompt string
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithRegistry replaces the built-in playbook registry.
func WithRegistry(r *Registry) EngineOption {
	return func(e *Engine) {
		e.registry = r
	}
}

// WithCompleter sets the text generator used for casual turns.
func WithCompleter(c genai.Completer) EngineOption {
	return func(e *Engine) {
		e.completer = c
	}
}

// WithPicker sets the random source for validation lines and questions.
func WithPicker(p *util.Picker) EngineOption {
	return func(e *Engine) {
		e.picker = p
	}
}

// WithCasualPrompt overrides the system prompt for casual turns.
func WithCasualPrompt(prompt string) EngineOption {
	return func(e *Engine) {
		e.casualPrompt = prompt
	}
}

// NewEngine creates an engine over dir. Without options it uses the built-in registry,
// a disabled completer and a time-seeded picker.
func NewEngine(dir Searcher, opts ...EngineOption) *Engine {
	e := &Engine{directory: dir}
	for _, opt := range opts {
		opt(e)
	}
	if e.registry == nil {
		e.registry = DefaultRegistry()
	}
	if e.completer == nil {
		e.completer = genai.Disabled{}
	}
	if e.picker == nil {
		e.picker = util.NewPicker()
	}
	if e.casualPrompt == "" {
		e.casualPrompt = prompts.Casual()
	}
	return e
}

// Registry returns the registry the engine runs on.
func (e *Engine) Registry() *Registry {
	return e.registry
}

// Run handles one message. A nil state is the initial state. The incoming state is
// never modified. Run does not fail: generation errors become fallback text.
func (e *Engine) Run(ctx context.Context, message string, state *models.PlaybookState) Result {
	if safety.Detect(message) {
		slog.Info("Engine.Run: crisis detected")
		return e.crisisResult()
	}

	current := models.NewPlaybookState()
	if state != nil {
		current = state.Clone()
		if current.Stage == "" {
			current.Stage = models.StageVent
		}
	}

	detected, score := e.registry.Detect(message)
	if IsCasual(message) || score == 0 {
		return e.genericResult(ctx, message)
	}

	def := detected
	if current.PlaybookID != "" {
		if bound, ok := e.registry.Get(current.PlaybookID); ok {
			def = bound
		} else {
			slog.Debug("Engine.Run: bound playbook not in registry, starting fresh", "playbookID", current.PlaybookID)
			current = models.NewPlaybookState()
		}
	}

	res := Result{
		PlaybookID: def.ID,
		Stage:      current.Stage,
		Actions:    def.BuildActions(message, e.registry.MaxActions),
	}
	res.Resources = e.collectResources(e.registry.ResourceQueries(def, message), e.registry.PerQueryLimit, nil)
	res.ResourceIDs = resourceIDs(res.Resources)

	switch current.Stage {
	case models.StageVent:
		res.Validation = e.picker.Choice(def.ValidationLines)
		res.TriageQuestion = ptr(e.picker.Choice(def.TriageQuestions))
		res.ActionTitle = QuickResetTitle
		next := current.Context.Clone()
		next[models.ContextInitialMessage] = models.StringValue(message)
		res.NextState = models.PlaybookState{PlaybookID: def.ID, Stage: current.Stage.Next(), Context: next}
	case models.StageTriage:
		res.Validation = e.picker.Choice(def.ValidationLines)
		res.TriageQuestion = ptr(e.picker.Choice(def.FollowUpQuestions))
		res.ActionTitle = def.ActionTitle
		next := current.Context.Clone()
		next[models.ContextTriageMessage] = models.StringValue(message)
		res.NextState = models.PlaybookState{PlaybookID: def.ID, Stage: current.Stage.Next(), Context: next}
	default:
		res.Stage = models.StagePlan
		res.Validation = PlanValidation
		res.ActionTitle = def.ActionTitle
		res.NextState = models.PlaybookState{PlaybookID: def.ID, Stage: res.Stage.Next(), Context: current.Context.Clone()}
	}

	slog.Debug("Engine.Run: playbook turn", "playbookID", def.ID, "stage", res.Stage, "nextStage", res.NextState.Stage,
		"actions", len(res.Actions), "resources", len(res.Resources))
	return res
}

func (e *Engine) crisisResult() Result {
	actions := append(safety.ActionSteps(), safety.ResourceLines(true)...)
	crisis := e.registry.Crisis
	found := e.collectResources(crisis.Queries, crisis.PerQueryLimit, crisis.ExcludeNameTerms)
	return Result{
		PlaybookID:  CrisisPlaybookID,
		Stage:       models.StagePlan,
		Validation:  safety.CrisisMessage(""),
		ActionTitle: crisis.ActionTitle,
		Actions:     truncate(actions, e.registry.MaxActions),
		ResourceIDs: resourceIDs(found),
		Resources:   found,
		NextState: models.PlaybookState{
			PlaybookID: CrisisPlaybookID,
			Stage:      models.StagePlan,
			Context:    models.PlaybookContext{},
		},
	}
}

func (e *Engine) genericResult(ctx context.Context, message string) Result {
	reply, err := e.completer.Complete(ctx, genai.Request{SystemPrompt: e.casualPrompt, Message: message})
	if err != nil {
		slog.Warn("Engine.Run: casual reply unavailable, using fallback", "kind", genai.KindOf(err), "error", err)
		reply = safety.FallbackMessage()
	}
	return Result{
		PlaybookID:  GenericPlaybookID,
		Stage:       models.StagePlan,
		Validation:  reply,
		Actions:     []string{},
		ResourceIDs: []string{},
		Resources:   []resources.Record{},
		NextState:   models.NewPlaybookState(),
	}
}

// collectResources runs each query in order, skipping names that contain an excluded
// term and ids already seen, and stops at the registry's resource cap.
func (e *Engine) collectResources(queries []string, perQuery int, excludeTerms []string) []resources.Record {
	out := []resources.Record{}
	if e.directory == nil || !e.directory.IsLoaded() {
		return out
	}
	seen := make(map[string]struct{})
	for _, q := range queries {
		for _, rec := range e.directory.Search(q, perQuery) {
			if nameExcluded(rec.Name, excludeTerms) {
				continue
			}
			id := rec.ID
			if id == "" {
				id = resources.BuildResourceID(rec.Name)
				rec.ID = id
			}
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, rec)
			if len(out) >= e.registry.MaxResources {
				return out
			}
		}
	}
	return out
}

func nameExcluded(name string, terms []string) bool {
	lower := strings.ToLower(name)
	for _, t := range terms {
		if t != "" && strings.Contains(lower, strings.ToLower(t)) {
			return true
		}
	}
	return false
}

func resourceIDs(recs []resources.Record) []string {
	ids := make([]string, len(recs))
	for i, r := range recs {
		ids[i] = r.ID
	}
	return ids
}

func ptr(s string) *string {
	return &s
}
