// Package audit keeps a best-effort JSON Lines trail of sentinel user-id
// resolutions for later forensic review. Entries are mirrored to the process
// log synchronously; the file append runs on a background worker behind a
// bounded queue so audit volume can never block or fail a request.
package audit

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/profilecraft/profilecraft/views"
)

// FileName is the audit log file created inside the configured directory.
const FileName = "audit.log"

// Entry is one JSON line in the audit log. Pointer fields serialize to null
// when the request carried no usable value.
type Entry struct {
	Time           string  `json:"time"` // ISO-8601, UTC
	Action         string  `json:"action"`
	Route          *string `json:"route"`
	Method         *string `json:"method"`
	IP             *string `json:"ip"`
	UserAgent      *string `json:"userAgent"`
	InputUserID    *string `json:"inputUserId"`
	ResolvedUserID *string `json:"resolvedUserId"`
}

// SentinelInfo carries what the caller knows about a sentinel resolution.
// Empty strings mean "not known" and become null in the entry.
type SentinelInfo struct {
	InputUserID    string
	ResolvedUserID string
	Action         string
}

// Logger appends audit entries to <dir>/audit.log.
type Logger struct {
	dir   string
	queue chan Entry
	done  chan struct{}
	log   *zap.SugaredLogger
	once  sync.Once
}

// New creates a Logger writing under dir and starts its background writer.
// The directory is created up front; a creation failure is logged but does
// not prevent startup, later appends will just fail (and be logged) too.
func New(dir string, queueSize int, log *zap.SugaredLogger) *Logger {
	if dir == "" {
		dir = "logs"
	}
	if queueSize <= 0 {
		queueSize = 256
	}
	l := &Logger{
		dir:   dir,
		queue: make(chan Entry, queueSize),
		done:  make(chan struct{}),
		log:   log,
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		l.warnf("audit: create log dir %s failed: %v", dir, err)
	}
	go l.drain()
	return l
}

// LogSentinelUsage records one sentinel resolution. It is fire-and-forget:
// the console mirror happens inline, the file append is queued, and when the
// queue is full the entry is dropped rather than blocking the caller.
func (l *Logger) LogSentinelUsage(r *http.Request, info SentinelInfo) {
	e := l.buildEntry(r, info)

	if l.log != nil {
		l.log.Infow("sentinel user id resolved",
			"action", e.Action,
			"route", strVal(e.Route),
			"method", strVal(e.Method),
			"ip", strVal(e.IP),
			"input_user_id", strVal(e.InputUserID),
			"resolved_user_id", strVal(e.ResolvedUserID),
		)
	}

	select {
	case l.queue <- e:
	default:
		l.warnf("audit: queue full, dropping entry action=%s", e.Action)
	}
}

// Close flushes queued entries and stops the background writer. Safe to call
// more than once.
func (l *Logger) Close() {
	l.once.Do(func() {
		close(l.queue)
		<-l.done
	})
}

func (l *Logger) buildEntry(r *http.Request, info SentinelInfo) Entry {
	e := Entry{
		Time:   time.Now().UTC().Format(time.RFC3339),
		Action: info.Action,
	}
	if e.Action == "" {
		e.Action = "sentinel_user_resolved"
	}
	if r != nil {
		if r.URL != nil && r.URL.Path != "" {
			e.Route = ptr(r.URL.Path)
		}
		if r.Method != "" {
			e.Method = ptr(r.Method)
		}
		if ip := views.ResolveClientIP(r); ip != views.UnknownIP {
			e.IP = ptr(ip)
		}
		if ua := r.UserAgent(); ua != "" {
			e.UserAgent = ptr(ua)
		}
	}
	if info.InputUserID != "" {
		e.InputUserID = ptr(info.InputUserID)
	}
	if info.ResolvedUserID != "" {
		e.ResolvedUserID = ptr(info.ResolvedUserID)
	}
	return e
}

func (l *Logger) drain() {
	for e := range l.queue {
		l.append(e)
	}
	close(l.done)
}

func (l *Logger) append(e Entry) {
	b, err := json.Marshal(e)
	if err != nil {
		l.warnf("audit: marshal entry failed: %v", err)
		return
	}
	f, err := os.OpenFile(filepath.Join(l.dir, FileName), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		l.warnf("audit: open %s failed: %v", FileName, err)
		return
	}
	defer f.Close()
	if _, err := f.Write(append(b, '\n')); err != nil {
		l.warnf("audit: append failed: %v", err)
	}
}

func (l *Logger) warnf(format string, args ...interface{}) {
	if l.log != nil {
		l.log.Warnf(format, args...)
	}
}

func ptr(s string) *string { return &s }

func strVal(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
