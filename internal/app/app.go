// Package app wires storage, extraction, and the completion client into the
// register/login/analyze operations exposed over HTTP.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"resumelens/internal/extract"
	"resumelens/internal/prompt"
	"resumelens/internal/sanitize"
	"resumelens/internal/storage"
	"resumelens/internal/store"
	"resumelens/internal/util"
	"resumelens/pkg/ai"
	"resumelens/pkg/auth"
	"resumelens/pkg/domain"
)

// DefaultDemoLimit is the number of unauthenticated analyses per session.
const DefaultDemoLimit = 3

// Config holds runtime configuration for the core application. The store,
// generator, and extractor fields let tests inject deterministic fakes; when
// nil, production implementations are built from the remaining fields.
type Config struct {
	DatabaseURL   string
	RedisAddr     string
	RedisPassword string
	SessionTTL    time.Duration
	SpoolDir      string
	DemoLimit     int

	AIProvider      string
	GeminiAPIKey    string
	GenerationModel string
	OpenAIBaseURL   string
	OpenAIAPIKey    string

	Users     store.CredentialStore
	Sessions  store.SessionStore
	Generator ai.TextGenerator
	Extractor extract.Extractor
}

// App is the core application service.
type App struct {
	users     store.CredentialStore
	sessions  store.SessionStore
	generator ai.TextGenerator
	extractor extract.Extractor
	spool     *storage.Spool
	demoLimit int
}

// New constructs the application, building Postgres-, Redis-, and
// provider-backed collaborators for any that were not injected.
func New(cfg Config) (*App, error) {
	if cfg.SessionTTL == 0 {
		cfg.SessionTTL = 24 * time.Hour
	}
	if cfg.DemoLimit == 0 {
		cfg.DemoLimit = DefaultDemoLimit
	}

	users := cfg.Users
	if users == nil {
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("database URL required")
		}
		var err error
		users, err = store.NewGormStore(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("init postgres store: %w", err)
		}
	}

	sessions := cfg.Sessions
	if sessions == nil {
		if strings.TrimSpace(cfg.RedisAddr) == "" {
			return nil, fmt.Errorf("redisAddr required for session storage")
		}
		sessions = store.NewRedisSessionStore(cfg.RedisAddr, cfg.RedisPassword, cfg.SessionTTL)
	}

	generator := cfg.Generator
	if generator == nil {
		var err error
		generator, err = newGenerator(cfg)
		if err != nil {
			return nil, err
		}
	}

	extractor := cfg.Extractor
	if extractor == nil {
		extractor = extract.NewDocExtractor()
	}

	spool, err := storage.NewSpool(cfg.SpoolDir)
	if err != nil {
		return nil, err
	}

	return &App{
		users:     users,
		sessions:  sessions,
		generator: generator,
		extractor: extractor,
		spool:     spool,
		demoLimit: cfg.DemoLimit,
	}, nil
}

func newGenerator(cfg Config) (ai.TextGenerator, error) {
	provider := strings.ToLower(strings.TrimSpace(cfg.AIProvider))
	switch provider {
	case "", "gemini":
		client, err := ai.NewGeminiClient(cfg.GeminiAPIKey)
		if err != nil {
			return nil, err
		}
		return ai.NewGeminiGenerator(client, cfg.GenerationModel), nil
	case "openai":
		return ai.NewOpenAICompatGenerator(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.GenerationModel), nil
	default:
		return nil, fmt.Errorf("unknown ai provider: %s", cfg.AIProvider)
	}
}

// DemoLimit returns the configured unauthenticated analysis quota.
func (a *App) DemoLimit() int {
	return a.demoLimit
}

// NewSession creates and persists an empty session record.
func (a *App) NewSession() (domain.Session, error) {
	sess := domain.Session{ID: util.NewID()}
	if err := a.sessions.Save(sess); err != nil {
		return domain.Session{}, fmt.Errorf("save session: %w", err)
	}
	return sess, nil
}

// GetSession resolves a session id to its record.
func (a *App) GetSession(id string) (domain.Session, bool, error) {
	if id == "" {
		return domain.Session{}, false, nil
	}
	return a.sessions.Get(id)
}

// Register creates a new account. Both fields are required; duplicate
// usernames and store failures surface as one undistinguished error.
func (a *App) Register(username, password string) error {
	if username == "" || password == "" {
		return ErrValidation
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	user := domain.User{
		ID:           util.NewID(),
		Username:     username,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}
	if err := a.users.CreateUser(user); err != nil {
		slog.Warn("registration rejected", "username", username, "err", err)
		return ErrRegistration
	}
	return nil
}

// Login validates credentials, establishes the identity on the session, and
// resets the demo counter. Unknown users and wrong passwords intentionally
// produce distinct errors.
func (a *App) Login(sess domain.Session, username, password string) (domain.Session, error) {
	if username == "" || password == "" {
		return sess, ErrValidation
	}
	user, ok, err := a.users.GetUserByUsername(username)
	if err != nil {
		return sess, fmt.Errorf("fetch user: %w", err)
	}
	if !ok {
		return sess, ErrUserNotFound
	}
	if !auth.CheckPassword(password, user.PasswordHash) {
		return sess, ErrInvalidCredentials
	}
	sess.UserID = user.ID
	sess.Username = user.Username
	sess.DemoUses = 0
	if err := a.sessions.Save(sess); err != nil {
		return sess, fmt.Errorf("save session: %w", err)
	}
	return sess, nil
}

// Logout destroys the session record.
func (a *App) Logout(sessionID string) error {
	return a.sessions.Delete(sessionID)
}

// DemoStatus reports remaining demo tries for the session.
func (a *App) DemoStatus(sess domain.Session) domain.DemoStatus {
	if sess.Authenticated() {
		return domain.DemoStatus{IsDemo: false}
	}
	remaining := a.remainingTries(sess)
	return domain.DemoStatus{IsDemo: true, RemainingTries: &remaining}
}

func (a *App) remainingTries(sess domain.Session) int {
	remaining := a.demoLimit - sess.DemoUses
	if remaining < 0 {
		remaining = 0
	}
	return remaining
}

// Admit decides whether an analysis request may proceed. Authenticated
// sessions always pass. Unauthenticated sessions consume one demo use per
// admitted request, counted before the pipeline runs and never refunded.
func (a *App) Admit(sess domain.Session) (domain.Session, error) {
	if sess.Authenticated() {
		return sess, nil
	}
	if sess.DemoUses >= a.demoLimit {
		return sess, ErrQuotaExceeded
	}
	sess.DemoUses++
	if err := a.sessions.Save(sess); err != nil {
		return sess, fmt.Errorf("save session: %w", err)
	}
	return sess, nil
}

// AnalysisRequest is the ephemeral input of one analysis. The file is
// spooled to disk for extraction and removed before Analyze returns.
type AnalysisRequest struct {
	Filename       string
	DeclaredType   string
	File           io.Reader
	JobDescription string
}

// Analyze runs the extraction -> composition -> completion -> sanitization
// pipeline. Admission (quota) is the caller's responsibility.
func (a *App) Analyze(ctx context.Context, req AnalysisRequest) (domain.AnalysisResult, error) {
	path, cleanup, err := a.spool.Write(req.Filename, req.File)
	if err != nil {
		return domain.AnalysisResult{}, fmt.Errorf("spool upload: %w", err)
	}
	defer cleanup()

	text, err := a.extractor.ExtractText(path, req.DeclaredType)
	if err != nil {
		if errors.Is(err, extract.ErrUnsupportedFormat) {
			return domain.AnalysisResult{}, ErrUnsupportedFormat
		}
		slog.Warn("text extraction failed", "declared_type", req.DeclaredType, "err", err)
		return domain.AnalysisResult{}, ErrExtraction
	}

	mode, userPrompt := prompt.Compose(text, req.JobDescription)

	raw, err := a.generator.GenerateText(ctx, prompt.System, userPrompt)
	if err != nil {
		slog.Error("completion request failed", "mode", mode, "err", err)
		return domain.AnalysisResult{}, ErrCompletion
	}

	result, err := sanitize.Parse(raw)
	if err != nil {
		// Raw model output goes to server logs only, never to the client.
		var fe *sanitize.FormatError
		if errors.As(err, &fe) {
			util.LoggerFromContext(ctx).Warn("model response failed to parse", "mode", mode, "raw", fe.Raw)
		}
		return domain.AnalysisResult{}, ErrResponseFormat
	}
	return result, nil
}
