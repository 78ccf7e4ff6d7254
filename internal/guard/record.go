package guard

import (
	"encoding/json"
	"os"
	"sort"
	"time"
)

// FileRecord is the scanned state of one tracked file.
// Records are produced by a Scanner and never mutated afterwards.
type FileRecord struct {
	Path         string      `json:"path"` // absolute, canonical
	LineCount    int         `json:"lineCount"`
	ContentHash  string      `json:"contentHash"` // SHA-256 of raw bytes
	Mode         os.FileMode `json:"mode,omitempty"`
	LastModified time.Time   `json:"lastModified"`
}

// ProjectSnapshot is an immutable point-in-time view of the project.
// TotalLineCount is always recomputed from the file records at
// construction; it is never adjusted incrementally.
type ProjectSnapshot struct {
	ID             string
	SessionID      string
	Timestamp      time.Time
	Files          map[string]FileRecord
	TotalLineCount int
	IsBaseline     bool
}

// NewProjectSnapshot builds a snapshot from scanned records, computing
// the total line count from scratch.
func NewProjectSnapshot(id, sessionID string, ts time.Time, files map[string]FileRecord, baseline bool) *ProjectSnapshot {
	total := 0
	for _, rec := range files {
		total += rec.LineCount
	}
	return &ProjectSnapshot{
		ID:             id,
		SessionID:      sessionID,
		Timestamp:      ts,
		Files:          files,
		TotalLineCount: total,
		IsBaseline:     baseline,
	}
}

// CloneFiles returns a copy of the snapshot's file map. Callers that
// need to merge rescanned records start from a clone so the original
// snapshot stays immutable.
func (s *ProjectSnapshot) CloneFiles() map[string]FileRecord {
	files := make(map[string]FileRecord, len(s.Files))
	for path, rec := range s.Files {
		files[path] = rec
	}
	return files
}

// snapshotJSON is the persistence form of a ProjectSnapshot. The file
// map is flattened into a path-sorted list so the serialized form is
// deterministic and survives formats that cannot encode map keys.
type snapshotJSON struct {
	ID             string       `json:"id"`
	SessionID      string       `json:"sessionId"`
	Timestamp      time.Time    `json:"timestamp"`
	Files          []FileRecord `json:"files"`
	TotalLineCount int          `json:"totalLineCount"`
	IsBaseline     bool         `json:"isBaseline"`
}

// MarshalJSON implements json.Marshaler.
func (s *ProjectSnapshot) MarshalJSON() ([]byte, error) {
	files := make([]FileRecord, 0, len(s.Files))
	for _, rec := range s.Files {
		files = append(files, rec)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })

	return json.Marshal(snapshotJSON{
		ID:             s.ID,
		SessionID:      s.SessionID,
		Timestamp:      s.Timestamp,
		Files:          files,
		TotalLineCount: s.TotalLineCount,
		IsBaseline:     s.IsBaseline,
	})
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *ProjectSnapshot) UnmarshalJSON(data []byte) error {
	var raw snapshotJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	files := make(map[string]FileRecord, len(raw.Files))
	for _, rec := range raw.Files {
		files[rec.Path] = rec
	}

	s.ID = raw.ID
	s.SessionID = raw.SessionID
	s.Timestamp = raw.Timestamp
	s.Files = files
	s.TotalLineCount = raw.TotalLineCount
	s.IsBaseline = raw.IsBaseline
	return nil
}

// SessionState is the durable per-session threshold state plus the
// statistics shown by the status command.
type SessionState struct {
	ID                    string
	BaselineLineCount     int
	BaselineRecorded      bool // set once by an explicit checkpoint or lazy init
	CurrentValidLineCount int
	AllowedPositiveDelta  int
	OperationsApproved    int
	OperationsBlocked     int
	Corrections           int
	UpdatedAt             time.Time
}
