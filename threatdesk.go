// Package threatdesk is a multi-specialist cybersecurity advisory engine.
// A query is routed to one or more specialist personas, each of which reasons
// with a model and a permitted tool set; their answers are merged, quality
// checked, and appended to the conversation thread.
package threatdesk

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/threatdesk/threatdesk/core"
	"github.com/threatdesk/threatdesk/internal/util"
	"github.com/threatdesk/threatdesk/logging"
	"github.com/threatdesk/threatdesk/model"
	"github.com/threatdesk/threatdesk/quality"
	"github.com/threatdesk/threatdesk/registry"
	"github.com/threatdesk/threatdesk/router"
	"github.com/threatdesk/threatdesk/runner"
	"github.com/threatdesk/threatdesk/session"
	"github.com/threatdesk/threatdesk/team"
	"github.com/threatdesk/threatdesk/tool"
)

// Options configures an Advisor. Every field has a working default; the only
// mandatory dependency is the model passed to New.
type Options struct {
	// Registry is the specialist profile table. Defaults to the built-in
	// advisory team.
	Registry *registry.Registry
	// Tools available to specialists, subject to per-profile permission.
	// Defaults to the built-in tool set with no API credentials.
	Tools []tool.Tool
	// Store persists sessions. Defaults to the in-memory store.
	Store core.SessionStore
	// Scorer rates query/profile affinity for routing. Defaults to the
	// deterministic keyword scorer.
	Scorer router.Scorer
	// Judge scores answers at the quality gate. Defaults to an LLM judge on
	// the same model used for reasoning.
	Judge quality.Judge
	// Merge combines multi-specialist turns. Defaults to model-backed
	// synthesis.
	Merge team.MergeStrategy
	// RequestTimeout bounds one whole Chat call: routing, all specialists,
	// and the quality gate.
	RequestTimeout time.Duration
	// Logger defaults to NoOpLogger.
	Logger logging.Logger

	// RouterOptions, RunnerOptions and ExecutorOptions tune the stages.
	RouterOptions   []func(o *router.Options)
	RunnerOptions   []func(o *runner.Options)
	ExecutorOptions []func(o *tool.ExecutorOptions)
}

// Advisor is the engine façade: one Chat call runs one full advisory turn.
type Advisor struct {
	registry    *registry.Registry
	router      *router.Router
	coordinator *team.Coordinator
	gate        *quality.Gate
	store       core.SessionStore
	timeout     time.Duration
	logger      logging.Logger

	mu      sync.Mutex
	threads map[string]*sync.Mutex
}

// New assembles an Advisor around the given reasoning model.
func New(m model.Model, optFns ...func(o *Options)) (*Advisor, error) {
	opts := Options{
		RequestTimeout: 2 * time.Minute,
		Logger:         logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Registry == nil {
		opts.Registry = registry.Default()
	}
	if opts.Tools == nil {
		opts.Tools = tool.Builtin()
	}
	if opts.Store == nil {
		opts.Store = session.NewInMemoryStore()
	}
	if opts.Scorer == nil {
		opts.Scorer = router.NewKeywordScorer()
	}
	if opts.Judge == nil {
		opts.Judge = quality.NewLLMJudge(m)
	}
	if opts.Merge == nil {
		opts.Merge = team.NewSynthesisMerge(m, opts.Registry)
	}

	// Every statically referenced specialist and every tool a profile names
	// must exist; broken configuration is fatal at startup, not per request.
	// The general profile is reached by fallback dispatch, never by scoring,
	// so a registry without it would only fail once a fallback query arrived.
	if err := opts.Registry.Validate(string(registry.RoleGeneral)); err != nil {
		return nil, err
	}
	if err := validateToolRefs(opts.Registry, opts.Tools); err != nil {
		return nil, err
	}

	executorOpts := append([]func(o *tool.ExecutorOptions){func(o *tool.ExecutorOptions) {
		o.Logger = opts.Logger
	}}, opts.ExecutorOptions...)
	exec := tool.NewExecutor(opts.Tools, executorOpts...)

	runnerOpts := append([]func(o *runner.Options){func(o *runner.Options) {
		o.Logger = opts.Logger
	}}, opts.RunnerOptions...)
	specialistRunner := runner.New(m, exec, runnerOpts...)

	routerOpts := append([]func(o *router.Options){func(o *router.Options) {
		o.Logger = opts.Logger
	}}, opts.RouterOptions...)

	return &Advisor{
		registry: opts.Registry,
		router:   router.New(opts.Registry, opts.Scorer, routerOpts...),
		coordinator: team.New(opts.Registry, specialistRunner, func(o *team.Options) {
			o.Merge = opts.Merge
			o.Logger = opts.Logger
		}),
		gate: quality.New(opts.Judge, func(o *quality.Options) {
			o.Logger = opts.Logger
		}),
		store:   opts.Store,
		timeout: opts.RequestTimeout,
		logger:  opts.Logger,
		threads: make(map[string]*sync.Mutex),
	}, nil
}

// Chat runs one advisory turn on the given thread. An empty threadID starts a
// new thread. Turns on the same thread are serialized; turns on different
// threads run independently.
func (a *Advisor) Chat(ctx context.Context, threadID, message string) (*core.TurnResult, error) {
	if threadID == "" {
		threadID = util.NewID()
	}

	lock := a.threadLock(threadID)
	lock.Lock()
	defer lock.Unlock()

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	result, err := a.turn(ctx, threadID, message)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %s", core.ErrRequestTimeout, threadID)
		}
		return nil, err
	}
	return result, nil
}

func (a *Advisor) turn(ctx context.Context, threadID, message string) (*core.TurnResult, error) {
	start := time.Now()
	query := core.NewQuery(threadID, message)

	sess, ok, err := a.store.Load(threadID)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if !ok {
		sess = core.NewSession(threadID)
	}
	history := sess.History()

	plan, err := a.router.Route(ctx, query, history)
	if err != nil {
		return nil, err
	}

	answer, err := a.coordinator.Run(ctx, plan, query, history, "")
	if err != nil {
		return nil, err
	}

	primary, err := a.primaryProfile(plan)
	if err != nil {
		return nil, err
	}

	final, verdict, err := a.gate.Evaluate(ctx, query, answer, primary.Style.QualityThreshold,
		func(ctx context.Context, feedback string) (*core.SynthesizedAnswer, error) {
			return a.coordinator.Run(ctx, plan, query, history, feedback)
		})
	if err != nil {
		return nil, err
	}

	agentName, agentRole := attribution(plan, primary)
	result := &core.TurnResult{
		Response:    final.Text,
		AgentName:   agentName,
		AgentRole:   agentRole,
		ToolsUsed:   final.ToolsUsed(),
		Plan:        plan,
		Verdict:     verdict,
		CompletedAt: time.Now(),
	}

	// A cancelled turn persists nothing.
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	sess.AppendTurn(core.Turn{
		Query:       query,
		Plan:        plan,
		Answer:      final.Text,
		AgentName:   agentName,
		AgentRole:   agentRole,
		ToolsUsed:   result.ToolsUsed,
		CompletedAt: result.CompletedAt,
	})
	if err := a.store.Save(threadID, sess); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}

	a.logger.Info("advisor.turn",
		"thread", threadID,
		"mode", string(plan.Mode),
		"agent", agentName,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return result, nil
}

// primaryProfile resolves the profile whose persona fronts the answer and
// whose quality threshold gates it.
func (a *Advisor) primaryProfile(plan core.DispatchPlan) (registry.Profile, error) {
	id := plan.Primary()
	if plan.Mode == core.DispatchFallback {
		id = string(registry.RoleGeneral)
	}
	return a.registry.Find(id)
}

// attribution picks the response's display identity. Multi-specialist
// answers are fronted by the team, not a single persona.
func attribution(plan core.DispatchPlan, primary registry.Profile) (name, role string) {
	if plan.Mode == core.DispatchMulti {
		return "Advisory Team", "multi_specialist"
	}
	return primary.AgentName, string(primary.Role)
}

// threadLock returns the mutex serializing turns for one thread.
func (a *Advisor) threadLock(threadID string) *sync.Mutex {
	a.mu.Lock()
	defer a.mu.Unlock()
	lock, ok := a.threads[threadID]
	if !ok {
		lock = &sync.Mutex{}
		a.threads[threadID] = lock
	}
	return lock
}

// validateToolRefs checks at startup that every profile references only
// registered tools.
func validateToolRefs(reg *registry.Registry, tools []tool.Tool) error {
	registered := make(map[string]bool, len(tools))
	for _, t := range tools {
		registered[t.Name()] = true
	}
	for _, profile := range reg.Profiles() {
		for _, name := range profile.Tools {
			if !registered[name] {
				return fmt.Errorf("profile %s references unregistered tool %s", profile.ID, name)
			}
		}
	}
	return nil
}

// IsUserError reports whether err stems from the caller's input rather than
// an internal failure.
func IsUserError(err error) bool {
	return errors.Is(err, core.ErrInvalidQuery)
}
