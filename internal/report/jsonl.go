package report

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/microsoft/go-mssqldb/msdsn"
)

// Record is the JSON form of an Event in the event log.
type Record struct {
	Timestamp time.Time `json:"timestamp"`
	Kind      string    `json:"kind"`
	Level     string    `json:"level"`
	Category  string    `json:"category,omitempty"`
	Schema    string    `json:"schema,omitempty"`
	Name      string    `json:"name,omitempty"`
	Path      string    `json:"path,omitempty"`
	Done      int       `json:"done,omitempty"`
	Total     int       `json:"total,omitempty"`
	Error     string    `json:"error,omitempty"`
	Detail    string    `json:"detail,omitempty"`
}

func recordOf(e Event) Record {
	r := Record{
		Timestamp: e.Time,
		Kind:      e.Kind.String(),
		Level:     e.Level().String(),
		Schema:    e.Name.Schema,
		Name:      e.Name.Name,
		Path:      e.Path,
		Done:      e.Done,
		Total:     e.Total,
		Detail:    e.Detail,
	}
	if r.Timestamp.IsZero() {
		r.Timestamp = time.Now()
	}
	switch e.Kind {
	case Connected, RunDone:
	default:
		r.Category = e.Category.String()
	}
	if e.Err != nil {
		r.Error = e.Err.Error()
	}
	return r
}

// JSONLines appends events to a JSON Lines file. Progress events are not
// recorded.
type JSONLines struct {
	mu        sync.Mutex
	f         *os.File
	enc       *json.Encoder
	path      string
	maxSizeMB int
}

// NewJSONLines creates parent directories (0o700) and opens path in append
// mode (0o600). If maxSizeMB > 0, the file is rotated to path.1 once it
// exceeds that size.
func NewJSONLines(path string, maxSizeMB int) (*JSONLines, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("event log: create dir: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("event log: open file: %w", err)
	}

	return &JSONLines{
		f:         f,
		enc:       json.NewEncoder(f),
		path:      path,
		maxSizeMB: maxSizeMB,
	}, nil
}

// Emit writes e as one JSON line. Calling Emit on a nil *JSONLines is a
// no-op.
func (l *JSONLines) Emit(e Event) {
	if l == nil || e.Kind == Progress {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	_ = l.enc.Encode(recordOf(e))

	if l.maxSizeMB > 0 {
		l.rotateIfNeeded()
	}
}

// Path returns the file the log writes to.
func (l *JSONLines) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// Close closes the underlying file. Calling Close on a nil *JSONLines is a
// no-op.
func (l *JSONLines) Close() error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.f.Close()
}

func (l *JSONLines) rotateIfNeeded() {
	info, err := l.f.Stat()
	if err != nil || info.Size() < int64(l.maxSizeMB)*1024*1024 {
		return
	}

	_ = l.f.Close()
	_ = os.Rename(l.path, l.path+".1")

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return
	}
	l.f = f
	l.enc = json.NewEncoder(f)
}

var urlSchemes = []string{"sqlserver://", "mssql://", "postgres://", "postgresql://", "mysql://", "duckdb://"}

// unparseableDSN replaces a connection string whose credentials cannot be
// located reliably.
const unparseableDSN = "<unparseable dsn>"

// SanitizeDSN strips credentials from a connection string before it is
// logged or stored. A string that cannot be parsed is replaced entirely.
func SanitizeDSN(dsn string) string {
	lower := strings.ToLower(dsn)
	for _, prefix := range urlSchemes {
		if strings.HasPrefix(lower, prefix) {
			u, err := url.Parse(dsn)
			if err != nil {
				return unparseableDSN
			}
			if u.User != nil {
				u.User = url.User("***")
			}
			q := u.Query()
			changed := false
			for _, k := range []string{"password", "pwd"} {
				if q.Has(k) {
					q.Set(k, "***")
					changed = true
				}
			}
			if changed {
				u.RawQuery = q.Encode()
			}
			return u.String()
		}
	}
	// go-sql-driver format: user:pass@tcp(
	dsn = reMySQLCreds.ReplaceAllString(dsn, "***@tcp(")
	if strings.HasPrefix(lower, "odbc:") || strings.Contains(dsn, ";") {
		return sanitizeKeyValueDSN(dsn)
	}
	// libpq: password=...
	dsn = rePGPassword.ReplaceAllString(dsn, "password=***")
	return dsn
}

// sanitizeKeyValueDSN masks the password of an ADO or odbc: connection
// string. Quoted and braced values may contain ';'. The masked string is
// parsed again by the driver's own parser; any password that survives
// masking discards the whole string.
func sanitizeKeyValueDSN(dsn string) string {
	if _, err := msdsn.Parse(dsn); err != nil {
		return unparseableDSN
	}
	masked := reKVPassword.ReplaceAllString(dsn, "${1}***")
	cfg, err := msdsn.Parse(masked)
	if err != nil {
		return unparseableDSN
	}
	if (cfg.Password != "" && cfg.Password != "***") || (cfg.ChangePassword != "" && cfg.ChangePassword != "***") {
		return unparseableDSN
	}
	return masked
}

var (
	reMySQLCreds = regexp.MustCompile(`[^@;]+@tcp\(`)
	reKVPassword = regexp.MustCompile(`(?i)((?:^|;|odbc:)\s*(?:change\s+password|password|pwd)\s*=)\s*(?:"(?:[^"]|"")*(?:"|$)|\{(?:[^}]|\}\})*(?:\}|$)|[^;]*)`)
	rePGPassword = regexp.MustCompile(`password=[^\s;]+`)
)
