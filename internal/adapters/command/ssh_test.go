package command

import (
	"context"
	"io"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/labelhost/internal/ports"
)

func TestShellQuote(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{in: "docker", want: "docker"},
		{in: "/opt/cvat", want: "/opt/cvat"},
		{in: "", want: "''"},
		{in: "python3 ~/manage.py createsuperuser", want: "'python3 ~/manage.py createsuperuser'"},
		{in: "it's", want: `'it'"'"'s'`},
		{in: "$PATH", want: "'$PATH'"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ShellQuote(tt.in), "ShellQuote(%q)", tt.in)
	}
}

func TestRemoteCommandLine(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "yum install -y docker",
		RemoteCommandLine(ports.CommandOptions{}, "yum", "install", "-y", "docker"))

	opts := ports.CommandOptions{Dir: "/opt/cvat", ExtraPath: []string{"/usr/local/bin"}}
	assert.Equal(t, `cd /opt/cvat && PATH=/usr/local/bin:"$PATH" docker-compose up -d`,
		RemoteCommandLine(opts, "docker-compose", "up", "-d"))

	assert.Equal(t, `docker exec -it cvat bash -ic 'python3 ~/manage.py createsuperuser'`,
		RemoteCommandLine(ports.CommandOptions{Interactive: true}, "docker", "exec", "-it", "cvat", "bash", "-ic", "python3 ~/manage.py createsuperuser"))
}

func TestSSHRunner_Defaults(t *testing.T) {
	t.Parallel()

	r := NewSSHRunner(SSHConfig{Host: "10.0.0.5"})
	assert.Equal(t, "10.0.0.5:22", r.Address())
	assert.Equal(t, 30*time.Second, r.cfg.Timeout)
	assert.NoError(t, r.Close(), "closing an unopened runner is a no-op")
}

func TestSSHRunner_MissingIdentityFile(t *testing.T) {
	t.Parallel()

	r := NewSSHRunner(SSHConfig{Host: "127.0.0.1", Port: 1, IdentityFile: "/nonexistent/labelhost_key"})
	_, err := r.Run(context.Background(), "true")
	assert.ErrorContains(t, err, "failed to load identity file")
}

func TestSSHRunner_SudoCommandLine(t *testing.T) {
	t.Parallel()

	r := NewSSHRunner(SSHConfig{Host: "10.0.0.5", User: "ec2-user", Sudo: true})
	assert.Equal(t, "sudo -n sh -c 'yum install -y docker'",
		r.commandLine(ports.CommandOptions{}, "yum", "install", "-y", "docker"))

	opts := ports.CommandOptions{Dir: "/opt/cvat", ExtraPath: []string{"/usr/local/bin"}}
	assert.Equal(t, `sudo -n sh -c 'cd /opt/cvat && PATH=/usr/local/bin:"$PATH" docker-compose up -d'`,
		r.commandLine(opts, "docker-compose", "up", "-d"))

	plain := NewSSHRunner(SSHConfig{Host: "10.0.0.5", User: "root"})
	assert.Equal(t, "id -u", plain.commandLine(ports.CommandOptions{}, "id", "-u"))
}

func TestSSHRunner_CloseReleasesAgentSocket(t *testing.T) {
	t.Parallel()

	client, server := net.Pipe()
	r := NewSSHRunner(SSHConfig{Host: "10.0.0.5"})
	r.agentConn = client

	require.NoError(t, r.Close())
	assert.Nil(t, r.agentConn)

	_, err := server.Read(make([]byte, 1))
	assert.ErrorIs(t, err, io.EOF, "the agent side sees the socket closed")
}

func TestSSHRunner_AgentDialedOnce(t *testing.T) {
	socket := filepath.Join(t.TempDir(), "agent.sock")
	listener, err := net.Listen("unix", socket)
	require.NoError(t, err)
	defer func() { _ = listener.Close() }()
	t.Setenv("SSH_AUTH_SOCK", socket)

	r := NewSSHRunner(SSHConfig{Host: "10.0.0.5"})
	require.NotNil(t, r.sshAgentAuth())
	first := r.agentConn
	require.NotNil(t, first)
	require.NotNil(t, r.sshAgentAuth())
	assert.Same(t, first, r.agentConn, "the agent socket is reused")

	require.NoError(t, r.Close())
	assert.Nil(t, r.agentConn)
}
