// Package mpv drives a detached mpv process over its JSON-IPC socket and
// exposes it as a playback engine.
package mpv

import (
	"context"
	"crypto/rand"
	"fmt"
	"net"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/movira-cli/movira/constant"
	"github.com/movira-cli/movira/log"
)

const (
	socketWaitRetries = 10
	socketWaitDelay   = 300 * time.Millisecond
)

// Player runs mpv as a child process and mediates every engine command
// through its IPC socket. It satisfies the playback engine contract.
type Player struct {
	socketPath string
	cmd        *exec.Cmd
	exited     chan struct{} // closed when the mpv process exits
	listener   *listener
	mu         sync.Mutex // protects socket writes
}

// New creates an idle player; the process starts on the first Load.
func New() *Player {
	return &Player{
		exited: make(chan struct{}),
	}
}

// Load starts mpv with the given stream URL, waits for its IPC socket and
// begins observing playback properties.
func (p *Player) Load(ctx context.Context, rawURL, title string) error {
	safeURL, err := sanitizeMediaTarget(rawURL)
	if err != nil {
		return fmt.Errorf("invalid media target: %w", err)
	}
	safeTitle := sanitizeTitle(title)

	// os.TempDir() rather than /tmp: macOS $TMPDIR is /var/folders/...
	if p.socketPath == "" {
		randomBytes := make([]byte, 4)
		if _, err := rand.Read(randomBytes); err != nil {
			return fmt.Errorf("generate socket name: %w", err)
		}
		p.socketPath = filepath.Join(os.TempDir(), fmt.Sprintf("%s-%x.sock", constant.Movira, randomBytes))
	}

	// Pass only the socket, title and URL; the user's mpv.conf keeps
	// control of --vo, --profile and --hwdec.
	args := []string{
		"--no-terminal",
		"--really-quiet",
		fmt.Sprintf("--input-ipc-server=%s", p.socketPath),
		fmt.Sprintf("--force-media-title=%s", safeTitle),
		fmt.Sprintf("--title=%s", safeTitle),
		"--force-window=yes",
		"--idle=yes",
		fmt.Sprintf("--user-agent=%s", constant.UserAgent),
		safeURL,
	}

	p.cmd = exec.Command("mpv", args...)
	p.cmd.SysProcAttr = sysProcAttr()
	p.cmd.Stdout = nil
	p.cmd.Stderr = nil
	p.cmd.Stdin = nil

	if err := p.cmd.Start(); err != nil {
		return fmt.Errorf("start mpv: %w", err)
	}

	// Reap the process to prevent zombies.
	p.exited = make(chan struct{})
	go func() {
		_ = p.cmd.Wait()
		close(p.exited)
	}()

	if err := p.waitForSocket(ctx); err != nil {
		if p.cmd.Process != nil {
			select {
			case <-p.exited:
			default:
				log.Warnf("killing mpv: socket never became ready")
				_ = p.cmd.Process.Kill()
			}
		}
		return fmt.Errorf("mpv socket not ready: %w", err)
	}

	return nil
}

// waitForSocket polls until the mpv IPC socket accepts connections.
func (p *Player) waitForSocket(ctx context.Context) error {
	for i := 0; i < socketWaitRetries; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-p.exited:
			return fmt.Errorf("mpv exited before socket was ready")
		case <-time.After(socketWaitDelay):
		}

		conn, err := net.Dial("unix", p.socketPath)
		if err == nil {
			conn.Close()
			return nil
		}
	}
	return fmt.Errorf("socket %s not ready after %d attempts", p.socketPath, socketWaitRetries)
}

// Wait returns a channel closed when the mpv process exits.
func (p *Player) Wait() <-chan struct{} {
	return p.exited
}

func (p *Player) Play(ctx context.Context) error {
	return p.set(ctx, "pause", false)
}

func (p *Player) Pause(ctx context.Context) error {
	return p.set(ctx, "pause", true)
}

// Seek moves playback to an absolute position in seconds.
func (p *Player) Seek(ctx context.Context, seconds float64) error {
	_, err := p.sendCommand(ctx, []interface{}{"seek", seconds, "absolute"})
	return err
}

// SetVolume maps the session's [0, 1] volume scale onto mpv's percentage.
func (p *Player) SetVolume(ctx context.Context, level float64) error {
	return p.set(ctx, "volume", level*100)
}

func (p *Player) SetRate(ctx context.Context, rate float64) error {
	return p.set(ctx, "speed", rate)
}

func (p *Player) Paused(ctx context.Context) (bool, error) {
	data, err := p.sendCommand(ctx, []interface{}{"get_property", "pause"})
	if err != nil {
		return false, err
	}
	paused, ok := data.(bool)
	if !ok {
		return false, nil
	}
	return paused, nil
}

func (p *Player) Position(ctx context.Context) (float64, error) {
	return p.getFloatProperty(ctx, "time-pos")
}

func (p *Player) Duration(ctx context.Context) (float64, error) {
	return p.getFloatProperty(ctx, "duration")
}

// Running reports whether mpv is responding to IPC commands.
func (p *Player) Running() bool {
	if p.socketPath == "" {
		return false
	}

	select {
	case <-p.exited:
		return false
	default:
	}

	_, err := p.sendCommand(context.Background(), []interface{}{"get_property", "pid"})
	return err == nil
}

// Close shuts down the mpv process and cleans up its socket.
func (p *Player) Close() error {
	if p.listener != nil {
		p.listener.stop()
		p.listener = nil
	}

	if p.socketPath == "" {
		return nil
	}

	// Graceful quit first; force kill after a grace period.
	_, _ = p.sendCommand(context.Background(), []interface{}{"quit"})

	select {
	case <-p.exited:
	case <-time.After(3 * time.Second):
		_ = killProcess(p.cmd)
	}

	_ = os.Remove(p.socketPath)
	return nil
}

// Socket returns the IPC socket path.
func (p *Player) Socket() string {
	return p.socketPath
}

func (p *Player) set(ctx context.Context, property string, value interface{}) error {
	_, err := p.sendCommand(ctx, []interface{}{"set_property", property, value})
	return err
}

func (p *Player) getFloatProperty(ctx context.Context, name string) (float64, error) {
	data, err := p.sendCommand(ctx, []interface{}{"get_property", name})
	if err != nil {
		return 0, err
	}
	if data == nil {
		return 0, fmt.Errorf("property %s: nil response", name)
	}
	val, ok := data.(float64)
	if !ok {
		return 0, fmt.Errorf("property %s: expected float64, got %T", name, data)
	}
	return val, nil
}

// sanitizeMediaTarget validates a URL before it reaches the mpv command line.
// URLs starting with '-' would otherwise be parsed as flags.
func sanitizeMediaTarget(link string) (string, error) {
	l := strings.TrimSpace(link)
	if l == "" {
		return "", fmt.Errorf("empty URL")
	}

	if strings.ContainsAny(l, "\x00\n\r") {
		return "", fmt.Errorf("invalid control characters in URL")
	}

	if strings.HasPrefix(l, "-") {
		return "", fmt.Errorf("url must not start with '-' (looks like a flag)")
	}

	if strings.Contains(l, "://") {
		u, err := url.Parse(l)
		if err != nil {
			return "", fmt.Errorf("invalid URL: %w", err)
		}
		switch strings.ToLower(u.Scheme) {
		case "http", "https":
			return l, nil
		default:
			return "", fmt.Errorf("unsupported URL scheme: %s", u.Scheme)
		}
	}

	return filepath.Clean(l), nil
}

func sanitizeTitle(title string) string {
	t := strings.ReplaceAll(title, "\n", " ")
	t = strings.ReplaceAll(t, "\r", " ")
	t = strings.ReplaceAll(t, "\t", " ")
	t = strings.ReplaceAll(t, "\x00", "")
	return strings.TrimSpace(t)
}
