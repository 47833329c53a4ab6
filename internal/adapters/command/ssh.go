package command

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
	"golang.org/x/term"

	"github.com/felixgeelhaar/labelhost/internal/ports"
)

// SSHConfig describes how to reach the target host.
type SSHConfig struct {
	Host         string
	Port         int
	User         string
	IdentityFile string
	Timeout      time.Duration
	// Sudo wraps every command in "sudo -n sh -c", so the login user needs
	// passwordless sudo.
	Sudo bool
}

// SSHRunner executes commands on a remote host over a single SSH connection.
// The connection is opened on first use and reused until Close.
type SSHRunner struct {
	cfg           SSHConfig
	identityFiles []string

	stdin  *os.File
	stdout io.Writer
	stderr io.Writer

	mu        sync.Mutex
	client    *ssh.Client
	agentConn net.Conn
}

// NewSSHRunner creates a runner for cfg.
func NewSSHRunner(cfg SSHConfig) *SSHRunner {
	homeDir, _ := os.UserHomeDir()
	if cfg.Port == 0 {
		cfg.Port = 22
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &SSHRunner{
		cfg: cfg,
		identityFiles: []string{
			filepath.Join(homeDir, ".ssh", "id_ed25519"),
			filepath.Join(homeDir, ".ssh", "id_rsa"),
		},
		stdin:  os.Stdin,
		stdout: os.Stdout,
		stderr: os.Stderr,
	}
}

// Address returns host:port.
func (r *SSHRunner) Address() string {
	return net.JoinHostPort(r.cfg.Host, strconv.Itoa(r.cfg.Port))
}

// Run executes a command on the remote host.
func (r *SSHRunner) Run(ctx context.Context, command string, args ...string) (ports.CommandResult, error) {
	return r.RunWith(ctx, ports.CommandOptions{}, command, args...)
}

// RunWith executes a command on the remote host. Dir and ExtraPath are
// applied inside the remote shell for this command only.
func (r *SSHRunner) RunWith(ctx context.Context, opts ports.CommandOptions, command string, args ...string) (ports.CommandResult, error) {
	client, err := r.connect(ctx)
	if err != nil {
		return ports.CommandResult{}, err
	}

	session, err := client.NewSession()
	if err != nil {
		return ports.CommandResult{}, fmt.Errorf("failed to create session: %w", err)
	}
	defer func() { _ = session.Close() }()

	var stdout, stderr bytes.Buffer
	if opts.Interactive {
		restore, err := r.attachTerminal(session)
		if err != nil {
			return ports.CommandResult{}, err
		}
		defer restore()
		session.Stdout = r.stdout
		session.Stderr = io.MultiWriter(r.stderr, &stderr)
	} else {
		session.Stdout = &stdout
		session.Stderr = &stderr
	}

	line := r.commandLine(opts, command, args...)

	// Handle context cancellation
	done := make(chan error, 1)
	go func() {
		done <- session.Run(line)
	}()

	select {
	case <-ctx.Done():
		_ = session.Signal(ssh.SIGTERM)
		return ports.CommandResult{}, ctx.Err()
	case err := <-done:
		result := ports.CommandResult{
			Stdout: stdout.String(),
			Stderr: stderr.String(),
		}
		if err != nil {
			var exitErr *ssh.ExitError
			if errors.As(err, &exitErr) {
				result.ExitCode = exitErr.ExitStatus()
				return result, nil
			}
			return result, err
		}
		return result, nil
	}
}

// Close closes the SSH connection and the agent socket if they are open.
func (r *SSHRunner) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	if r.client != nil {
		errs = append(errs, r.client.Close())
		r.client = nil
	}
	if r.agentConn != nil {
		errs = append(errs, r.agentConn.Close())
		r.agentConn = nil
	}
	return errors.Join(errs...)
}

func (r *SSHRunner) commandLine(opts ports.CommandOptions, command string, args ...string) string {
	line := RemoteCommandLine(opts, command, args...)
	if !r.cfg.Sudo {
		return line
	}
	return "sudo -n sh -c " + ShellQuote(line)
}

func (r *SSHRunner) attachTerminal(session *ssh.Session) (func(), error) {
	fd := int(r.stdin.Fd())
	if !term.IsTerminal(fd) {
		return nil, errors.New("interactive command requires a terminal on stdin")
	}

	width, height, err := term.GetSize(fd)
	if err != nil {
		width, height = 80, 24
	}
	modes := ssh.TerminalModes{
		ssh.ECHO:          1,
		ssh.TTY_OP_ISPEED: 14400,
		ssh.TTY_OP_OSPEED: 14400,
	}
	termType := os.Getenv("TERM")
	if termType == "" {
		termType = "xterm"
	}
	if err := session.RequestPty(termType, height, width, modes); err != nil {
		return nil, fmt.Errorf("failed to request pty: %w", err)
	}

	state, err := term.MakeRaw(fd)
	if err != nil {
		return nil, fmt.Errorf("failed to put terminal in raw mode: %w", err)
	}
	session.Stdin = r.stdin
	return func() { _ = term.Restore(fd, state) }, nil
}

func (r *SSHRunner) connect(ctx context.Context) (*ssh.Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.client != nil {
		return r.client, nil
	}

	authMethods, err := r.buildAuthMethods()
	if err != nil {
		return nil, fmt.Errorf("failed to build auth methods: %w", err)
	}

	user := r.cfg.User
	if user == "" {
		user = os.Getenv("USER")
	}

	config := &ssh.ClientConfig{
		User:            user,
		Auth:            authMethods,
		HostKeyCallback: ssh.InsecureIgnoreHostKey(), //nolint:gosec // host verification is out of scope for provisioning
		Timeout:         r.cfg.Timeout,
	}

	addr := r.Address()
	dialer := &net.Dialer{
		Timeout: config.Timeout,
	}

	netConn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", addr, err)
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(netConn, addr, config)
	if err != nil {
		_ = netConn.Close()
		return nil, fmt.Errorf("SSH handshake failed: %w", err)
	}

	r.client = ssh.NewClient(sshConn, chans, reqs)
	return r.client, nil
}

func (r *SSHRunner) buildAuthMethods() ([]ssh.AuthMethod, error) {
	var methods []ssh.AuthMethod

	// Try explicit identity file first
	if r.cfg.IdentityFile != "" {
		signer, err := loadPrivateKey(r.cfg.IdentityFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load identity file %s: %w", r.cfg.IdentityFile, err)
		}
		methods = append(methods, ssh.PublicKeys(signer))
	}

	for _, path := range r.identityFiles {
		signer, err := loadPrivateKey(path)
		if err == nil {
			methods = append(methods, ssh.PublicKeys(signer))
		}
	}

	if agentAuth := r.sshAgentAuth(); agentAuth != nil {
		methods = append(methods, agentAuth)
	}

	if len(methods) == 0 {
		return nil, fmt.Errorf("no authentication methods available")
	}

	return methods, nil
}

func loadPrivateKey(path string) (ssh.Signer, error) {
	// Expand ~ if present
	if strings.HasPrefix(path, "~/") {
		homeDir, _ := os.UserHomeDir()
		path = filepath.Join(homeDir, path[2:])
	}

	key, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	return ssh.ParsePrivateKey(key)
}

// sshAgentAuth dials the agent once per runner; the socket stays open for
// the signers and is closed by Close. Callers hold r.mu.
func (r *SSHRunner) sshAgentAuth() ssh.AuthMethod {
	if r.agentConn == nil {
		socket := os.Getenv("SSH_AUTH_SOCK")
		if socket == "" {
			return nil
		}
		conn, err := net.Dial("unix", socket)
		if err != nil {
			return nil
		}
		r.agentConn = conn
	}

	return ssh.PublicKeysCallback(agent.NewClient(r.agentConn).Signers)
}

// RemoteCommandLine renders a command for a POSIX shell on the remote host,
// applying the scoped directory and PATH.
func RemoteCommandLine(opts ports.CommandOptions, command string, args ...string) string {
	var b strings.Builder
	if opts.Dir != "" {
		b.WriteString("cd ")
		b.WriteString(ShellQuote(opts.Dir))
		b.WriteString(" && ")
	}
	if len(opts.ExtraPath) > 0 {
		b.WriteString("PATH=")
		b.WriteString(ShellQuote(strings.Join(opts.ExtraPath, ":")))
		b.WriteString(`:"$PATH" `)
	}
	b.WriteString(ShellQuote(command))
	for _, arg := range args {
		b.WriteByte(' ')
		b.WriteString(ShellQuote(arg))
	}
	return b.String()
}

// ShellQuote quotes s for a POSIX shell. Words made only of safe
// characters are returned unchanged.
func ShellQuote(s string) string {
	if s == "" {
		return "''"
	}
	safe := true
	for _, c := range s {
		if !isShellSafe(c) {
			safe = false
			break
		}
	}
	if safe {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'"'"'`) + "'"
}

func isShellSafe(c rune) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	}
	return strings.ContainsRune("-_./:=@%+,", c)
}

// Ensure SSHRunner implements ports.CommandRunner.
var _ ports.CommandRunner = (*SSHRunner)(nil)
