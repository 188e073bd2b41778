package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/danmuck/rsvpctl/internal/action"
	"github.com/danmuck/rsvpctl/internal/logging"
	"github.com/danmuck/rsvpctl/internal/mailbox"
	"github.com/danmuck/rsvpctl/internal/observability"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// replyTimeout bounds the failure reply, which may outlive the handler deadline.
const replyTimeout = 5 * time.Second

var (
	ErrInvalidConfig  = errors.New("agent: invalid config")
	ErrAlreadyRunning = errors.New("agent: already running")
	ErrRefused        = errors.New("agent: envelope refused")
)

// Config configures one agent process.
type Config struct {
	Name              string
	LLMAddress        string
	Workers           int
	HeartbeatInterval time.Duration
	HandleTimeout     time.Duration
	RecentLimit       int
}

// DefaultConfig returns the manager agent defaults.
func DefaultConfig() Config {
	return Config{
		Name:              "rsvp-manager",
		LLMAddress:        "rsvp-llm",
		Workers:           8,
		HeartbeatInterval: 30 * time.Second,
		HandleTimeout:     60 * time.Second,
		RecentLimit:       100,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.Workers <= 0 {
		c.Workers = def.Workers
	}
	if c.HeartbeatInterval <= 0 {
		c.HeartbeatInterval = def.HeartbeatInterval
	}
	if c.HandleTimeout <= 0 {
		c.HandleTimeout = def.HandleTimeout
	}
	if c.RecentLimit <= 0 {
		c.RecentLimit = def.RecentLimit
	}
	return c
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidConfig)
	}
	if strings.ContainsAny(c.Name, " \t\r\n") {
		return fmt.Errorf("%w: name %q contains whitespace", ErrInvalidConfig, c.Name)
	}
	if c.LLMAddress == c.Name {
		return fmt.Errorf("%w: llm address must differ from agent name", ErrInvalidConfig)
	}
	return nil
}

// DispatchRecord is one handled envelope, kept for the status view.
type DispatchRecord struct {
	MessageID string        `json:"message_id"`
	Type      string        `json:"type"`
	Sender    string        `json:"sender"`
	Success   bool          `json:"success"`
	Error     string        `json:"error,omitempty"`
	Duration  time.Duration `json:"duration_ns"`
	At        time.Time     `json:"at"`
}

// Status is a point-in-time view of the agent.
type Status struct {
	Name       string   `json:"name"`
	LLMAddress string   `json:"llm_address,omitempty"`
	Running    bool     `json:"running"`
	Handled    uint64   `json:"handled"`
	Failed     uint64   `json:"failed"`
	Routes     []string `json:"routes"`
}

// Agent consumes its mailbox address and dispatches each envelope through
// its router.
type Agent struct {
	cfg    Config
	mb     mailbox.Mailbox
	svc    action.Service
	router *Router
	log    zerolog.Logger

	running atomic.Bool
	handled atomic.Uint64
	failed  atomic.Uint64

	recentMu sync.Mutex
	recent   []DispatchRecord
}

// New builds an agent with an empty router. svc may be nil when no handler
// reaches the canister.
func New(cfg Config, mb mailbox.Mailbox, svc action.Service) (*Agent, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if mb == nil {
		return nil, fmt.Errorf("%w: mailbox is required", ErrInvalidConfig)
	}
	return &Agent{
		cfg:    cfg,
		mb:     mb,
		svc:    svc,
		router: NewRouter(),
		log:    logging.Component("agent").With().Str("agent", cfg.Name).Logger(),
		recent: make([]DispatchRecord, 0, cfg.RecentLimit),
	}, nil
}

// NewManager builds the RSVP manager: chat goes to the LLM, structured output
// is executed against svc, and the answer is sent to the user.
func NewManager(cfg Config, mb mailbox.Mailbox, svc action.Service) (*Agent, error) {
	if svc == nil {
		return nil, fmt.Errorf("%w: manager requires a service", ErrInvalidConfig)
	}
	if strings.TrimSpace(cfg.LLMAddress) == "" {
		return nil, fmt.Errorf("%w: manager requires an llm address", ErrInvalidConfig)
	}
	a, err := New(cfg, mb, svc)
	if err != nil {
		return nil, err
	}
	a.router.Handle(TypeChatMessage, a.handleChat)
	a.router.Handle(TypeStructuredOutputResponse, a.handleStructuredOutput)
	a.router.Handle(TypeRSVPResponse, a.handleRSVPResponse)
	return a, nil
}

func (a *Agent) Name() string {
	return a.cfg.Name
}

func (a *Agent) Router() *Router {
	return a.router
}

// Send wraps payload in an envelope from this agent and delivers it to dest.
func (a *Agent) Send(ctx context.Context, dest, msgType string, payload any) error {
	env, err := mailbox.NewEnvelope(msgType, a.cfg.Name, payload)
	if err != nil {
		return err
	}
	if err := a.mb.Send(ctx, dest, env); err != nil {
		return fmt.Errorf("agent: send %s to %s: %w", msgType, dest, err)
	}
	return nil
}

// Run consumes the agent's address until ctx is done or the subscription
// ends. In-flight handlers finish before Run returns.
func (a *Agent) Run(ctx context.Context) error {
	if !a.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer a.running.Store(false)

	inbox, err := a.mb.Subscribe(ctx, a.cfg.Name)
	if err != nil {
		return fmt.Errorf("agent: subscribe %s: %w", a.cfg.Name, err)
	}
	ticker := time.NewTicker(a.cfg.HeartbeatInterval)
	defer ticker.Stop()

	var g errgroup.Group
	g.SetLimit(a.cfg.Workers)
	a.log.Info().Strs("routes", a.router.Types()).Int("workers", a.cfg.Workers).Msg("agent started")

	for {
		select {
		case <-ctx.Done():
			_ = g.Wait()
			a.log.Info().Msg("agent shutdown")
			return nil
		case env, ok := <-inbox:
			if !ok {
				_ = g.Wait()
				a.log.Info().Msg("agent inbox closed")
				return nil
			}
			g.Go(func() error {
				_ = a.Handle(ctx, env)
				return nil
			})
		case <-ticker.C:
			st := a.Status()
			a.log.Info().Uint64("handled", st.Handled).Uint64("failed", st.Failed).Msg("agent heartbeat")
		}
	}
}

// Submit dispatches env synchronously. Envelopes that fail validation or
// carry an unrouted type are refused with ErrRefused before any handler runs.
func (a *Agent) Submit(ctx context.Context, env mailbox.Envelope) error {
	if err := env.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrRefused, err)
	}
	if !a.router.Routes(env.Type) {
		return fmt.Errorf("%w: %w: %q", ErrRefused, ErrUnknownMessageType, env.Type)
	}
	return a.Handle(ctx, env)
}

// Handle dispatches one envelope. A handler error is reported back to the
// sender as a failed RSVPResponse and returned.
func (a *Agent) Handle(ctx context.Context, env mailbox.Envelope) error {
	ctx, cancel := context.WithTimeout(ctx, a.cfg.HandleTimeout)
	defer cancel()

	start := time.Now()
	err := a.router.Dispatch(ctx, env.Sender, env, a.svc)
	dur := time.Since(start)

	rec := DispatchRecord{
		MessageID: env.ID,
		Type:      env.Type,
		Sender:    env.Sender,
		Success:   err == nil,
		Duration:  dur,
		At:        start.UTC(),
	}
	observability.RecordAgentMessage(env.Type, err == nil)
	if err == nil {
		a.handled.Add(1)
		a.record(rec)
		a.log.Debug().Str("id", env.ID).Str("type", env.Type).Str("sender", env.Sender).Dur("duration", dur).Msg("message handled")
		return nil
	}

	a.failed.Add(1)
	rec.Error = err.Error()
	a.record(rec)
	a.log.Warn().Err(err).Str("id", env.ID).Str("type", env.Type).Str("sender", env.Sender).Msg("message failed")

	// never answer a response with another response
	if env.Type != TypeRSVPResponse && strings.TrimSpace(env.Sender) != "" {
		replyCtx, cancelReply := context.WithTimeout(context.WithoutCancel(ctx), replyTimeout)
		defer cancelReply()
		if replyErr := a.Send(replyCtx, env.Sender, TypeRSVPResponse, failureResponse(err)); replyErr != nil {
			a.log.Error().Err(replyErr).Str("dest", env.Sender).Msg("failure reply not delivered")
		}
	}
	return err
}

func (a *Agent) record(rec DispatchRecord) {
	a.recentMu.Lock()
	defer a.recentMu.Unlock()
	a.recent = append(a.recent, rec)
	if over := len(a.recent) - a.cfg.RecentLimit; over > 0 {
		a.recent = append(a.recent[:0], a.recent[over:]...)
	}
}

// Recent returns up to limit of the latest dispatch records, oldest first.
func (a *Agent) Recent(limit int) []DispatchRecord {
	a.recentMu.Lock()
	defer a.recentMu.Unlock()
	if limit <= 0 {
		limit = 20
	}
	if len(a.recent) <= limit {
		out := make([]DispatchRecord, len(a.recent))
		copy(out, a.recent)
		return out
	}
	out := make([]DispatchRecord, limit)
	copy(out, a.recent[len(a.recent)-limit:])
	return out
}

func (a *Agent) Status() Status {
	return Status{
		Name:       a.cfg.Name,
		LLMAddress: a.cfg.LLMAddress,
		Running:    a.running.Load(),
		Handled:    a.handled.Load(),
		Failed:     a.failed.Load(),
		Routes:     a.router.Types(),
	}
}
