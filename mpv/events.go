package mpv

import (
	"encoding/json"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/movira-cli/movira/log"
	"github.com/movira-cli/movira/playback"
)

// StatusFunc receives one folded status report per observed mpv event.
type StatusFunc func(playback.Status)

// observed maps mpv property names to observer ids.
var observed = []struct {
	id   int
	name string
}{
	{1, "time-pos"},
	{2, "pause"},
	{3, "duration"},
	{4, "paused-for-cache"},
	{5, "demuxer-cache-time"},
	{6, "eof-reached"},
}

// Observe subscribes to mpv property changes and folds each notification into
// a cumulative status report delivered to onStatus. Reports arrive on a
// background goroutine in delivery order.
func (p *Player) Observe(onStatus StatusFunc) error {
	l := newListener(p.socketPath, onStatus)
	if err := l.start(); err != nil {
		return err
	}
	p.listener = l
	return nil
}

// listener holds a persistent IPC connection and the accumulated status that
// successive property changes fold into.
type listener struct {
	socketPath string
	conn       net.Conn
	onStatus   StatusFunc
	stopCh     chan struct{}
	mu         sync.Mutex
	listening  bool

	status playback.Status
}

func newListener(socketPath string, onStatus StatusFunc) *listener {
	return &listener{
		socketPath: socketPath,
		onStatus:   onStatus,
		stopCh:     make(chan struct{}),
	}
}

func (l *listener) start() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.listening {
		return nil
	}

	for _, prop := range observed {
		if _, err := doSendCommand(l.socketPath, []interface{}{"observe_property", prop.id, prop.name}); err != nil {
			return fmt.Errorf("observe %s: %w", prop.name, err)
		}
	}

	conn, err := net.Dial("unix", l.socketPath)
	if err != nil {
		return fmt.Errorf("event listener connect: %w", err)
	}
	l.conn = conn
	l.listening = true

	go l.readLoop()

	log.Debugf("mpv event listener started on %s", l.socketPath)
	return nil
}

func (l *listener) stop() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.listening {
		return
	}

	close(l.stopCh)
	if l.conn != nil {
		l.conn.Close()
	}
	l.listening = false
}

// readLoop reads newline-delimited JSON events from the persistent connection.
func (l *listener) readLoop() {
	defer func() {
		l.mu.Lock()
		l.listening = false
		l.mu.Unlock()
	}()

	buf := make([]byte, readBufSize)
	var remainder []byte

	for {
		select {
		case <-l.stopCh:
			return
		default:
		}

		if err := l.conn.SetReadDeadline(time.Now().Add(5 * time.Second)); err != nil {
			return
		}

		n, err := l.conn.Read(buf)
		if err != nil {
			if strings.Contains(err.Error(), "timeout") || strings.Contains(err.Error(), "deadline") {
				continue
			}
			log.Warnf("event listener read error: %v", err)
			return
		}

		data := append(remainder, buf[:n]...)
		remainder = nil

		lines := strings.Split(string(data), "\n")
		for i, line := range lines {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}

			// An incomplete trailing line carries over to the next read.
			if i == len(lines)-1 && !strings.HasSuffix(string(data), "\n") {
				remainder = []byte(line)
				continue
			}

			l.processEvent(line)
		}
	}
}

// processEvent folds one mpv event line into the cumulative status and
// dispatches the result.
func (l *listener) processEvent(line string) {
	var event map[string]interface{}
	if err := json.Unmarshal([]byte(line), &event); err != nil {
		return
	}

	eventType, ok := event["event"].(string)
	if !ok {
		return
	}

	switch eventType {
	case "property-change":
		name, _ := event["name"].(string)
		l.foldProperty(name, event["data"])
	case "file-loaded":
		l.status.Loaded = true
	case "end-file":
		if reason, _ := event["reason"].(string); reason == "error" {
			l.status.Err = fmt.Errorf("mpv playback failed")
		} else {
			l.status.Ended = true
			l.status.Playing = false
		}
	default:
		return
	}

	if l.onStatus != nil {
		l.onStatus(l.status)
	}
}

func (l *listener) foldProperty(name string, data interface{}) {
	switch name {
	case "time-pos":
		if v, ok := data.(float64); ok {
			l.status.Position = v
		}
	case "pause":
		if v, ok := data.(bool); ok {
			l.status.Playing = !v
		}
	case "duration":
		if v, ok := data.(float64); ok {
			l.status.Duration = v
		}
	case "paused-for-cache":
		if v, ok := data.(bool); ok {
			l.status.Buffering = v
		}
	case "demuxer-cache-time":
		if v, ok := data.(float64); ok {
			l.status.Buffered = v
		}
	case "eof-reached":
		if v, ok := data.(bool); ok && v {
			l.status.Ended = true
			l.status.Playing = false
		}
	}
}
