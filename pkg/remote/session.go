// Package remote executes deployment actions on a host over one SSH connection.
package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pkg/sftp"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/encoding"

	"github.com/williamokano/deploy4dev/pkg/action"
	"github.com/williamokano/deploy4dev/pkg/textenc"
)

const (
	DefaultPort      = 22
	DefaultChunkSize = 1024
	DefaultTimeout   = 30 * time.Second
)

// Config describes the connection a Session is bound to.
type Config struct {
	Host       string
	Port       int // Default: 22
	User       string
	Password   string
	KnownHosts string        // Optional: known_hosts file; host keys are not verified when empty
	Timeout    time.Duration // Default: 30s, bounds dial and handshake
	ChunkSize  int           // Default: 1024
	Encoding   string        // Default: utf-8
}

func (c Config) addr() string {
	port := c.Port
	if port == 0 {
		port = DefaultPort
	}
	return net.JoinHostPort(c.Host, strconv.Itoa(port))
}

// Session owns one authenticated SSH connection. All actions passed to Run
// share it, and it is closed when Run returns.
type Session struct {
	client    *ssh.Client
	host      string
	chunkSize int
	encoding  encoding.Encoding
	logger    zerolog.Logger

	closeOnce sync.Once
	closeErr  error
}

// Dial connects to the host described by cfg and authenticates with the
// configured password.
func Dial(ctx context.Context, cfg Config, logger zerolog.Logger) (*Session, error) {
	chunkSize := cfg.ChunkSize
	if chunkSize == 0 {
		chunkSize = DefaultChunkSize
	}
	if chunkSize < 0 {
		return nil, ErrInvalidChunkSize
	}

	enc, err := textenc.Lookup(cfg.Encoding)
	if err != nil {
		return nil, err
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	var hostKeyErr error
	verify := ssh.InsecureIgnoreHostKey()
	if cfg.KnownHosts != "" {
		verify, err = knownhosts.New(cfg.KnownHosts)
		if err != nil {
			return nil, fmt.Errorf("failed to read known hosts: %w", err)
		}
	}

	password := cfg.Password
	clientConfig := &ssh.ClientConfig{
		User: cfg.User,
		Auth: []ssh.AuthMethod{
			ssh.Password(password),
			ssh.KeyboardInteractive(func(_, _ string, questions []string, _ []bool) ([]string, error) {
				answers := make([]string, len(questions))
				for i := range answers {
					answers[i] = password
				}
				return answers, nil
			}),
		},
		HostKeyCallback: func(hostname string, remote net.Addr, key ssh.PublicKey) error {
			if err := verify(hostname, remote, key); err != nil {
				hostKeyErr = err
				return err
			}
			return nil
		},
		Timeout: timeout,
	}

	addr := cfg.addr()
	log := logger.With().Str("component", "remote").Str("host", addr).Str("user", cfg.User).Logger()

	dialer := net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, wrapError(addr, "connect", fmt.Errorf("%w: %v", ErrConnFailed, err))
	}

	// The handshake has no context of its own; bound it by the deadline.
	if err := conn.SetDeadline(time.Now().Add(timeout)); err != nil {
		conn.Close()
		return nil, wrapError(addr, "connect", fmt.Errorf("%w: %v", ErrConnFailed, err))
	}
	c, chans, reqs, err := ssh.NewClientConn(conn, addr, clientConfig)
	if err != nil {
		conn.Close()
		switch {
		case hostKeyErr != nil:
			return nil, wrapError(addr, "handshake", fmt.Errorf("%w: %w: %v", ErrConnFailed, ErrHostKeyRejected, hostKeyErr))
		case strings.Contains(err.Error(), "unable to authenticate"):
			return nil, wrapError(addr, "authenticate", fmt.Errorf("%w: %v", ErrAuthFailed, err))
		default:
			return nil, wrapError(addr, "handshake", fmt.Errorf("%w: %v", ErrConnFailed, err))
		}
	}
	if err := conn.SetDeadline(time.Time{}); err != nil {
		c.Close()
		return nil, wrapError(addr, "connect", fmt.Errorf("%w: %v", ErrConnFailed, err))
	}

	log.Info().Msg("connected")

	return &Session{
		client:    ssh.NewClient(c, chans, reqs),
		host:      addr,
		chunkSize: chunkSize,
		encoding:  enc,
		logger:    log,
	}, nil
}

// Run executes actions in order. The first failing action aborts the rest.
// The connection is closed before Run returns, whatever the outcome.
func (s *Session) Run(ctx context.Context, actions []action.Action) error {
	defer func() {
		if err := s.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			s.logger.Debug().Err(err).Msg("error closing connection")
		}
	}()

	// A cancelled context tears the connection down so blocked reads return.
	stop := context.AfterFunc(ctx, func() { s.Close() })
	defer stop()

	for i, act := range actions {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: %w", ErrActionFailed, err)
		}

		var err error
		switch a := act.(type) {
		case action.Command:
			err = s.execute(string(a))
		case action.Upload:
			err = s.upload(a)
		default:
			s.logger.Error().
				Int("index", i).
				Str("type", fmt.Sprintf("%T", act)).
				Msg("unknown action type, skipping")
			continue
		}

		if err != nil {
			s.logger.Error().Err(err).Int("index", i).Str("action", act.String()).Msg("an error occurred")
			return fmt.Errorf("%w: %s: %w", ErrActionFailed, act, err)
		}
	}

	return nil
}

// execute runs one command on a fresh channel with stderr merged into
// stdout, logging output chunk by chunk until the command finishes.
func (s *Session) execute(command string) error {
	sess, err := s.client.NewSession()
	if err != nil {
		return wrapError(s.host, "open session", err)
	}
	defer sess.Close()

	pr, pw := io.Pipe()
	sess.Stdout = pw
	sess.Stderr = pw

	log := s.logger.With().Str("command", command).Logger()
	log.Info().Msg("starting to execute command")

	if err := sess.Start(command); err != nil {
		pw.Close()
		return wrapError(s.host, "start command", err)
	}

	var g errgroup.Group
	g.Go(func() error {
		err := sess.Wait()
		pw.Close()
		return err
	})

	buf := make([]byte, s.chunkSize)
	for {
		n, err := pr.Read(buf)
		if n > 0 {
			s.logChunk(log, buf[:n])
		}
		if err != nil {
			break
		}
	}

	if err := g.Wait(); err != nil {
		var exitErr *ssh.ExitError
		if errors.As(err, &exitErr) {
			log.Warn().Int("exit_status", exitErr.ExitStatus()).Msg("command exited with non-zero status")
			return nil
		}
		return wrapError(s.host, "wait command", err)
	}

	log.Debug().Msg("command finished")
	return nil
}

func (s *Session) logChunk(log zerolog.Logger, chunk []byte) {
	text, err := textenc.Decode(s.encoding, chunk)
	if err != nil {
		log.Error().Err(err).Str("output", text).Msg("error decoding received data")
		return
	}
	log.Info().Str("output", text).Msg("remote output")
}

// upload writes the whole source file to the target path over SFTP,
// replacing any existing file.
func (s *Session) upload(u action.Upload) error {
	start := time.Now()

	client, err := sftp.NewClient(s.client)
	if err != nil {
		return wrapError(s.host, "sftp init", err)
	}
	defer client.Close()

	data, err := os.ReadFile(u.Source)
	if err != nil {
		return fmt.Errorf("failed to read upload source: %w", err)
	}

	log := s.logger.With().Str("source", u.Source).Str("target", u.Target).Logger()
	log.Info().Int("size_bytes", len(data)).Msg("starting to upload file")

	remoteFile, err := client.Create(u.Target)
	if err != nil {
		return wrapError(s.host, "create", err)
	}

	if _, err := remoteFile.Write(data); err != nil {
		remoteFile.Close()
		return wrapError(s.host, "upload", err)
	}

	if err := remoteFile.Close(); err != nil {
		return wrapError(s.host, "upload", err)
	}

	log.Info().
		Int64("seconds", int64(time.Since(start).Seconds())).
		Msg("file upload completed")

	return nil
}

// Close releases the connection. It is safe to call more than once.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.client.Close()
	})
	return s.closeErr
}
