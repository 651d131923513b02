// Package deploy sequences a deployment: local pre-actions, remote actions
// over one SSH session, then local post-actions.
package deploy

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/williamokano/deploy4dev/pkg/action"
	"github.com/williamokano/deploy4dev/pkg/config"
	"github.com/williamokano/deploy4dev/pkg/local"
	"github.com/williamokano/deploy4dev/pkg/remote"
)

var (
	ErrLocalCommand = errors.New("local action failed")
	ErrRemote       = errors.New("remote actions failed")
)

// LocalRunner runs a local shell command and fails on non-zero exit.
type LocalRunner interface {
	RunChecked(ctx context.Context, cmd string) error
}

// RemoteRunner executes actions over an open connection and releases it.
type RemoteRunner interface {
	Run(ctx context.Context, actions []action.Action) error
}

// DialFunc opens the remote session for a deployment.
type DialFunc func(ctx context.Context, cfg remote.Config, logger zerolog.Logger) (RemoteRunner, error)

// PasswordFunc asks for the password of user when none is configured.
type PasswordFunc func(user string) (string, error)

// Deployer runs deployments described by config files.
type Deployer struct {
	local    LocalRunner
	dial     DialFunc
	password PasswordFunc
	logger   zerolog.Logger
}

// Option customizes a Deployer.
type Option func(*Deployer)

// WithLocalRunner replaces the local shell executor.
func WithLocalRunner(r LocalRunner) Option {
	return func(d *Deployer) { d.local = r }
}

// WithDialer replaces how remote sessions are opened.
func WithDialer(dial DialFunc) Option {
	return func(d *Deployer) { d.dial = dial }
}

// WithPasswordPrompt replaces the interactive password prompt.
func WithPasswordPrompt(prompt PasswordFunc) Option {
	return func(d *Deployer) { d.password = prompt }
}

func dialSession(ctx context.Context, cfg remote.Config, logger zerolog.Logger) (RemoteRunner, error) {
	s, err := remote.Dial(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// New creates a deployer using the local shell, SSH, and the terminal.
func New(logger zerolog.Logger, opts ...Option) *Deployer {
	d := &Deployer{
		local:    local.New(logger),
		dial:     dialSession,
		password: PromptPassword,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Run loads the deployment file at path and executes it. A missing file is
// reported as config.ErrNotFound without running anything.
func (d *Deployer) Run(ctx context.Context, path string) error {
	cfg, err := config.Load(path)
	if err != nil {
		if errors.Is(err, config.ErrNotFound) {
			d.logger.Info().Str("file", path).Msg("deployment file does not exist, nothing to do")
			return err
		}

		var verr *config.ValidationError
		if errors.As(err, &verr) {
			for _, problem := range verr.Problems {
				d.logger.Error().Str("file", path).Str("problem", problem).Msg("invalid deployment configuration")
			}
		} else {
			d.logger.Error().Err(err).Str("file", path).Msg("failed to load deployment configuration")
		}
		return err
	}

	d.logger.Info().Str("file", path).Msg("deploying using configuration file")
	return d.Deploy(ctx, cfg)
}

// Deploy executes an already loaded configuration.
func (d *Deployer) Deploy(ctx context.Context, cfg *config.Config) error {
	start := time.Now()

	if cfg.User == "" {
		d.logger.Error().Msg("missing 'user' key in the deployment configuration")
		return fmt.Errorf("%w: missing user", config.ErrInvalid)
	}
	if cfg.Host == "" {
		d.logger.Error().Msg("missing 'host' key in the deployment configuration")
		return fmt.Errorf("%w: missing host", config.ErrInvalid)
	}

	log := d.logger.With().Str("host", cfg.Host).Int("port", cfg.GetPort()).Str("user", cfg.User).Logger()

	if err := d.runLocal(ctx, log, "pre-actions", cfg.PreActions); err != nil {
		return err
	}

	if err := d.runRemote(ctx, log, cfg); err != nil {
		return err
	}

	if err := d.runLocal(ctx, log, "post-actions", cfg.PostActions); err != nil {
		return err
	}

	log.Info().Dur("duration", time.Since(start)).Msg("deployment completed successfully")
	return nil
}

func (d *Deployer) runLocal(ctx context.Context, log zerolog.Logger, stage string, commands []string) error {
	if len(commands) == 0 {
		return nil
	}

	stageLog := log.With().Str("stage", stage).Logger()
	stageLog.Info().Int("count", len(commands)).Msg("running local actions")

	for i, cmd := range commands {
		if err := d.local.RunChecked(ctx, cmd); err != nil {
			stageLog.Error().Err(err).Int("index", i).Str("command", cmd).Msg("local action failed, aborting deployment")
			return fmt.Errorf("%w: %s: %w", ErrLocalCommand, stage, err)
		}
	}

	return nil
}

func (d *Deployer) runRemote(ctx context.Context, log zerolog.Logger, cfg *config.Config) error {
	actions := action.Translate(cfg.Actions, log)
	if len(actions) == 0 {
		log.Info().Msg("no remote actions configured")
		return nil
	}

	password, err := d.resolvePassword(cfg)
	if err != nil {
		log.Error().Err(err).Msg("failed to read password")
		return fmt.Errorf("%w: %w", ErrRemote, err)
	}

	log.Info().Int("count", len(actions)).Msg("starting to execute ssh actions")

	runner, err := d.dial(ctx, remote.Config{
		Host:       cfg.Host,
		Port:       cfg.GetPort(),
		User:       cfg.User,
		Password:   password,
		KnownHosts: cfg.KnownHosts,
		Timeout:    time.Duration(cfg.GetTimeout()) * time.Second,
		ChunkSize:  cfg.GetChunkSize(),
		Encoding:   cfg.GetEncoding(),
	}, log)
	if err != nil {
		if remote.IsConnectionError(err) {
			log.Error().Err(err).Msg("could not connect to remote host")
		} else {
			log.Error().Err(err).Msg("could not open remote session")
		}
		return fmt.Errorf("%w: %w", ErrRemote, err)
	}

	if err := runner.Run(ctx, actions); err != nil {
		log.Error().Err(err).Msg("remote actions failed, aborting deployment")
		return fmt.Errorf("%w: %w", ErrRemote, err)
	}

	return nil
}

func (d *Deployer) resolvePassword(cfg *config.Config) (string, error) {
	if cfg.HasPassword() {
		return *cfg.Password, nil
	}
	return d.password(cfg.User)
}
