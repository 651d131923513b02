//go:build integration
// +build integration

package remote

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/williamokano/deploy4dev/pkg/action"
)

func TestSessionAgainstOpenSSHIntegration(t *testing.T) {
	// Skip in short mode
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()

	container, cfg, err := setupOpenSSHContainer(ctx)
	if err != nil {
		t.Fatalf("Failed to start OpenSSH server: %v", err)
	}
	defer container.Terminate(ctx)

	t.Run("upload then verify checksum remotely", func(t *testing.T) {
		content := make([]byte, 512*1024)
		_, err := rand.Read(content)
		require.NoError(t, err)
		source := filepath.Join(t.TempDir(), "artifact.bin")
		require.NoError(t, os.WriteFile(source, content, 0644))
		sum := sha256.Sum256(content)

		sink := &logSink{}
		s, err := Dial(ctx, cfg, zerolog.New(sink))
		require.NoError(t, err)

		err = s.Run(ctx, []action.Action{
			action.Upload{Source: source, Target: "/tmp/artifact.bin"},
			action.Command("sha256sum /tmp/artifact.bin"),
		})

		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(sink.output(t), hex.EncodeToString(sum[:])),
			"remote checksum mismatch: %s", sink.output(t))
	})

	t.Run("stderr and stdout are both logged", func(t *testing.T) {
		sink := &logSink{}
		s, err := Dial(ctx, cfg, zerolog.New(sink))
		require.NoError(t, err)

		require.NoError(t, s.Run(ctx, []action.Action{action.Command("echo hello; echo oops >&2")}))
		assert.Contains(t, sink.output(t), "hello\n")
		assert.Contains(t, sink.output(t), "oops\n")
	})

	t.Run("wrong password", func(t *testing.T) {
		bad := cfg
		bad.Password = "not-the-password"

		_, err := Dial(ctx, bad, zerolog.Nop())
		assert.ErrorIs(t, err, ErrAuthFailed)
	})
}

// setupOpenSSHContainer starts an OpenSSH server that accepts password logins.
func setupOpenSSHContainer(ctx context.Context) (testcontainers.Container, Config, error) {
	req := testcontainers.ContainerRequest{
		Image:        "linuxserver/openssh-server:latest",
		ExposedPorts: []string{"2222/tcp"},
		Env: map[string]string{
			"PASSWORD_ACCESS": "true",
			"USER_NAME":       testUser,
			"USER_PASSWORD":   testPassword,
		},
		WaitingFor: wait.ForListeningPort("2222/tcp").WithStartupTimeout(2 * time.Minute),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, Config{}, err
	}

	host, err := container.Host(ctx)
	if err != nil {
		container.Terminate(ctx)
		return nil, Config{}, err
	}

	mappedPort, err := container.MappedPort(ctx, "2222/tcp")
	if err != nil {
		container.Terminate(ctx)
		return nil, Config{}, err
	}

	return container, Config{
		Host:     host,
		Port:     mappedPort.Int(),
		User:     testUser,
		Password: testPassword,
		Timeout:  30 * time.Second,
	}, nil
}
