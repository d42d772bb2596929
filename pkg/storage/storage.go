// Package storage keeps a per-session log of liveness verdicts.
// Each session is a JSON Lines file that only ever grows at the end. Lines
// can be encrypted at rest using NaCl secretbox, each under its own nonce.
// No imagery is stored.
package storage

import (
	"bufio"
	"bytes"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/nacl/secretbox"

	"github.com/MrCodeEU/livegate/pkg/liveness"
	"github.com/MrCodeEU/livegate/pkg/logging"
)

const (
	// NonceSize is the size of the nonce used for encryption
	NonceSize = 24
	// KeySize is the size of the encryption key
	KeySize = 32
)

// VerdictRecord is one engine verdict.
type VerdictRecord struct {
	Seq        int       `json:"seq"`
	Timestamp  time.Time `json:"timestamp"`
	Outcome    string    `json:"outcome"`
	State      string    `json:"state"`
	Confidence float64   `json:"confidence"`
	Reasons    []string  `json:"reasons,omitempty"`
	Transient  bool      `json:"transient,omitempty"`
	Blink      bool      `json:"blink"`
	Head       bool      `json:"head"`
	Texture    bool      `json:"texture"`
	Variation  bool      `json:"variation"`
	// LatencyMs is the engine's time for this verdict.
	LatencyMs  float64   `json:"latency_ms"`
}

// NewVerdictRecord captures res for the log.
func NewVerdictRecord(seq int, ts time.Time, res liveness.Result, latency time.Duration) VerdictRecord {
	return VerdictRecord{
		Seq:        seq,
		Timestamp:  ts,
		Outcome:    string(res.Outcome),
		State:      string(res.State),
		Confidence: res.Confidence,
		Reasons:    res.Reasons,
		Transient:  res.Transient,
		Blink:      res.BlinkDetected,
		Head:       res.HeadMovementDetected,
		Texture:    res.TextureAnalysisPassed,
		Variation:  res.FrameVariationPassed,
		LatencyMs:  float64(latency.Microseconds()) / 1000,
	}
}

// SessionLog contains every verdict recorded for one session.
type SessionLog struct {
	SessionID string            `json:"session_id"`
	StartedAt time.Time         `json:"started_at"`
	UpdatedAt time.Time         `json:"updated_at"`
	Verdicts  []VerdictRecord   `json:"verdicts"`
	Metadata  map[string]string `json:"metadata"`
}

// Summary counts verdicts per outcome.
func (s *SessionLog) Summary() map[string]int {
	counts := make(map[string]int)
	for _, v := range s.Verdicts {
		counts[v.Outcome]++
	}
	return counts
}

// Passed reports whether any verdict passed.
func (s *SessionLog) Passed() bool {
	for _, v := range s.Verdicts {
		if v.Outcome == string(liveness.OutcomePassed) {
			return true
		}
	}
	return false
}

// ErrRecordNotFound is returned when no log exists for the session.
var ErrRecordNotFound = errors.New("session log not found")

// ErrSessionExists is returned when creating a log that already exists.
var ErrSessionExists = errors.New("session log already exists")

// ErrInvalidSessionID is returned for ids that are not plain file names.
var ErrInvalidSessionID = errors.New("invalid session id")

// ErrEncryption is returned when encryption/decryption fails.
var ErrEncryption = errors.New("encryption error")

// FileStorage stores one file per session.
type FileStorage struct {
	mu                sync.Mutex
	dataDir           string
	encryptionEnabled bool
	encryptionKey     [KeySize]byte
}

// NewFileStorage creates a new FileStorage instance.
func NewFileStorage(dataDir string, encryptionEnabled bool) (*FileStorage, error) {
	fs := &FileStorage{
		dataDir:           dataDir,
		encryptionEnabled: encryptionEnabled,
	}

	// Derive encryption key from machine-specific information
	if encryptionEnabled {
		key, err := deriveKey()
		if err != nil {
			return nil, fmt.Errorf("failed to derive encryption key: %w", err)
		}
		fs.encryptionKey = key
	}

	if err := os.MkdirAll(fs.sessionsDir(), 0700); err != nil {
		return nil, fmt.Errorf("failed to create sessions directory: %w", err)
	}

	return fs, nil
}

// deriveKey derives an encryption key from machine-specific information.
// Logs written on one machine cannot be read on another.
func deriveKey() ([KeySize]byte, error) {
	var key [KeySize]byte
	var identity strings.Builder

	// Machine ID (Linux specific)
	if machineID, err := os.ReadFile("/etc/machine-id"); err == nil {
		identity.Write(machineID)
	}
	if hostname, err := os.Hostname(); err == nil {
		identity.WriteString(hostname)
	}
	identity.WriteString(fmt.Sprintf("%d", os.Getuid()))
	identity.WriteString("livegate-v1-salt")

	hash := sha256.Sum256([]byte(identity.String()))
	copy(key[:], hash[:])

	return key, nil
}

func (fs *FileStorage) sessionsDir() string {
	return filepath.Join(fs.dataDir, "sessions")
}

func (fs *FileStorage) sessionPath(id string) (string, error) {
	if id == "" || id != filepath.Base(id) || strings.HasPrefix(id, ".") {
		return "", fmt.Errorf("%w: %q", ErrInvalidSessionID, id)
	}
	return filepath.Join(fs.sessionsDir(), id+fs.ext()), nil
}

func (fs *FileStorage) ext() string {
	if fs.encryptionEnabled {
		return ".enc"
	}
	return ".jsonl"
}

// logEntry is one line of a session file. The first line carries the
// session header, every later line one verdict.
type logEntry struct {
	Session *sessionHeader `json:"session,omitempty"`
	Verdict *VerdictRecord `json:"verdict,omitempty"`
	At      time.Time      `json:"at"`
}

type sessionHeader struct {
	SessionID string            `json:"session_id"`
	StartedAt time.Time         `json:"started_at"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// encodeLine marshals e into one newline-terminated line. Encrypted lines
// are sealed on their own and base64 encoded.
func (fs *FileStorage) encodeLine(e logEntry) ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal log entry: %w", err)
	}
	if fs.encryptionEnabled {
		sealed, err := fs.encrypt(data)
		if err != nil {
			return nil, fmt.Errorf("failed to encrypt log entry: %w", err)
		}
		data = make([]byte, base64.StdEncoding.EncodedLen(len(sealed)))
		base64.StdEncoding.Encode(data, sealed)
	}
	return append(data, '\n'), nil
}

func (fs *FileStorage) decodeLine(line []byte) (logEntry, error) {
	var e logEntry
	if fs.encryptionEnabled {
		sealed := make([]byte, base64.StdEncoding.DecodedLen(len(line)))
		n, err := base64.StdEncoding.Decode(sealed, line)
		if err != nil {
			return e, fmt.Errorf("%w: %v", ErrEncryption, err)
		}
		if line, err = fs.decrypt(sealed[:n]); err != nil {
			return e, err
		}
	}
	if err := json.Unmarshal(line, &e); err != nil {
		return e, fmt.Errorf("failed to unmarshal log entry: %w", err)
	}
	return e, nil
}

func headerEntry(log SessionLog) logEntry {
	at := log.UpdatedAt
	if at.IsZero() {
		at = log.StartedAt
	}
	return logEntry{
		Session: &sessionHeader{SessionID: log.SessionID, StartedAt: log.StartedAt, Metadata: log.Metadata},
		At:      at,
	}
}

// SaveSession writes the whole log for a session, replacing any existing one.
func (fs *FileStorage) SaveSession(log SessionLog) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.save(log)
}

func (fs *FileStorage) save(log SessionLog) error {
	path, err := fs.sessionPath(log.SessionID)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	line, err := fs.encodeLine(headerEntry(log))
	if err != nil {
		return err
	}
	buf.Write(line)
	for i := range log.Verdicts {
		line, err := fs.encodeLine(logEntry{Verdict: &log.Verdicts[i], At: log.UpdatedAt})
		if err != nil {
			return err
		}
		buf.Write(line)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write session log: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to write session log: %w", err)
	}

	logging.Debugf("Saved %d verdicts for session: %s", len(log.Verdicts), log.SessionID)
	return nil
}

// LoadSession reads the log for a session.
func (fs *FileStorage) LoadSession(id string) (*SessionLog, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.load(id)
}

func (fs *FileStorage) load(id string) (*SessionLog, error) {
	path, err := fs.sessionPath(id)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("failed to read session log: %w", err)
	}
	defer f.Close()

	log := &SessionLog{SessionID: id, Metadata: map[string]string{}}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	n := 0
	for scanner.Scan() {
		n++
		if len(scanner.Bytes()) == 0 {
			continue
		}
		e, err := fs.decodeLine(scanner.Bytes())
		if err != nil {
			return nil, fmt.Errorf("session log line %d: %w", n, err)
		}
		switch {
		case e.Session != nil:
			log.StartedAt = e.Session.StartedAt
			if e.Session.Metadata != nil {
				log.Metadata = e.Session.Metadata
			}
		case e.Verdict != nil:
			log.Verdicts = append(log.Verdicts, *e.Verdict)
		}
		if e.At.After(log.UpdatedAt) {
			log.UpdatedAt = e.At
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read session log: %w", err)
	}
	return log, nil
}

// CreateSession starts an empty log.
func (fs *FileStorage) CreateSession(id string, metadata map[string]string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	path, err := fs.sessionPath(id)
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); err == nil {
		return ErrSessionExists
	}

	if metadata == nil {
		metadata = make(map[string]string)
	}
	now := time.Now()
	return fs.save(SessionLog{
		SessionID: id,
		StartedAt: now,
		UpdatedAt: now,
		Metadata:  metadata,
	})
}

// AppendVerdict adds a verdict to the end of the session log, creating the
// log if needed. Existing lines are never read or rewritten.
func (fs *FileStorage) AppendVerdict(id string, v VerdictRecord) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	path, err := fs.sessionPath(id)
	if err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0600)
	if err != nil {
		return fmt.Errorf("failed to open session log: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("failed to open session log: %w", err)
	}

	now := time.Now()
	var out []byte
	if info.Size() == 0 {
		header, err := fs.encodeLine(headerEntry(SessionLog{SessionID: id, StartedAt: now}))
		if err != nil {
			return err
		}
		out = header
	}
	line, err := fs.encodeLine(logEntry{Verdict: &v, At: now})
	if err != nil {
		return err
	}
	out = append(out, line...)

	if _, err := f.Write(out); err != nil {
		return fmt.Errorf("failed to append verdict: %w", err)
	}
	return nil
}

// DeleteSession removes a session log.
func (fs *FileStorage) DeleteSession(id string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	path, err := fs.sessionPath(id)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return ErrRecordNotFound
		}
		return fmt.Errorf("failed to delete session log: %w", err)
	}

	logging.Infof("Deleted session log: %s", id)
	return nil
}

// ListSessions returns the ids of all stored sessions, sorted.
func (fs *FileStorage) ListSessions() ([]string, error) {
	entries, err := os.ReadDir(fs.sessionsDir())
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	ext := fs.ext()

	ids := []string{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if name := entry.Name(); strings.HasSuffix(name, ext) {
			ids = append(ids, strings.TrimSuffix(name, ext))
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// SessionExists checks if a log exists for the session.
func (fs *FileStorage) SessionExists(id string) bool {
	path, err := fs.sessionPath(id)
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}

// encrypt encrypts data using NaCl secretbox.
func (fs *FileStorage) encrypt(plaintext []byte) ([]byte, error) {
	var nonce [NonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nil, err
	}

	encrypted := secretbox.Seal(nonce[:], plaintext, &nonce, &fs.encryptionKey)
	return encrypted, nil
}

// decrypt decrypts data using NaCl secretbox.
func (fs *FileStorage) decrypt(ciphertext []byte) ([]byte, error) {
	if len(ciphertext) < NonceSize {
		return nil, ErrEncryption
	}

	var nonce [NonceSize]byte
	copy(nonce[:], ciphertext[:NonceSize])

	plaintext, ok := secretbox.Open(nil, ciphertext[NonceSize:], &nonce, &fs.encryptionKey)
	if !ok {
		return nil, ErrEncryption
	}

	return plaintext, nil
}
