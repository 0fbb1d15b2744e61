package importer

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"pim-service/internal/models"
)

// ImportSession is the transient state of one import run. It is an immutable
// value: the With* transitions return a new session rather than mutating in
// place, so wizard steps cannot leak state into each other.
type ImportSession struct {
	ID              uuid.UUID             `json:"id"`
	FileName        string                `json:"fileName"`
	FilePath        string                `json:"-"`
	Format          models.ImportFormat   `json:"format"`
	Step            models.ImportStep     `json:"step"`
	AllWorksheets   []string              `json:"allWorksheets"`
	Worksheets      []string              `json:"worksheets,omitempty"`
	Headers         []string              `json:"headers,omitempty"`
	Mapping         map[int]string        `json:"mapping,omitempty"`
	MappingRecalled bool                  `json:"mappingRecalled"`
	Settings        models.ImportSettings `json:"settings"`
	DryRun          *models.DryRunResult  `json:"dryRun,omitempty"`
	CreatedAt       time.Time             `json:"createdAt"`
}

// NewSession starts a session after a successful upload (step 2 pending)
func NewSession(fileName, filePath string, format models.ImportFormat, worksheets []string) ImportSession {
	return ImportSession{
		ID:            uuid.New(),
		FileName:      fileName,
		FilePath:      filePath,
		Format:        format,
		Step:          models.StepWorksheets,
		AllWorksheets: worksheets,
		Settings: models.ImportSettings{
			Mode:                     models.ImportModeCreateOrUpdate,
			SmartAttributeExtraction: true,
			AutoAssignBarcodes:       true,
			AutoCreateParents:        true,
		},
		CreatedAt: time.Now(),
	}
}

// WithWorksheets selects the worksheets to import and advances to mapping
func (s ImportSession) WithWorksheets(selected []string, headers []string) (ImportSession, error) {
	if len(selected) == 0 {
		return s, fmt.Errorf("no worksheet selected")
	}
	known := make(map[string]bool, len(s.AllWorksheets))
	for _, name := range s.AllWorksheets {
		known[name] = true
	}
	for _, name := range selected {
		if !known[name] {
			return s, fmt.Errorf("unknown worksheet %q", name)
		}
	}
	next := s
	next.Worksheets = append([]string(nil), selected...)
	next.Headers = append([]string(nil), headers...)
	next.Step = models.StepMapping
	next.DryRun = nil
	return next, nil
}

// WithMapping confirms the column mapping and settings, advancing to dry run
func (s ImportSession) WithMapping(mapping map[int]string, settings models.ImportSettings) (ImportSession, error) {
	if s.Step < models.StepMapping {
		return s, fmt.Errorf("worksheets must be selected before mapping")
	}
	if !settings.Mode.Valid() {
		return s, fmt.Errorf("invalid import mode %q", settings.Mode)
	}
	mapped := make(map[string]bool, len(mapping))
	for idx, field := range mapping {
		if field != "" && !KnownField(field) {
			return s, fmt.Errorf("column %d mapped to unknown field %q", idx, field)
		}
		mapped[field] = true
	}
	if !mapped[FieldProductName] {
		return s, fmt.Errorf("required field %q is not mapped to any column", FieldProductName)
	}
	next := s
	next.Mapping = make(map[int]string, len(mapping))
	for idx, field := range mapping {
		next.Mapping[idx] = field
	}
	next.Settings = settings
	next.Step = models.StepDryRun
	next.DryRun = nil
	return next, nil
}

// WithDryRun records a dry-run result and advances to commit
func (s ImportSession) WithDryRun(result *models.DryRunResult) ImportSession {
	next := s
	next.DryRun = result
	next.Step = models.StepCommit
	return next
}

// StepBack moves one wizard step backwards, the only permitted reverse move
func (s ImportSession) StepBack() ImportSession {
	next := s
	if next.Step > models.StepWorksheets {
		next.Step--
	}
	next.DryRun = nil
	return next
}

// MappedField reports whether any column maps to the given field
func (s ImportSession) MappedField(field string) bool {
	for _, f := range s.Mapping {
		if f == field {
			return true
		}
	}
	return false
}

// SessionStore holds active import sessions in memory. Sessions are
// request-scoped working state, not durable data; only the mapping memory
// outlives them.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]ImportSession
	maxAge   time.Duration
}

// NewSessionStore returns a store that drops sessions older than maxAge
func NewSessionStore(maxAge time.Duration) *SessionStore {
	return &SessionStore{
		sessions: make(map[uuid.UUID]ImportSession),
		maxAge:   maxAge,
	}
}

// Get returns a session by ID
func (st *SessionStore) Get(id uuid.UUID) (ImportSession, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	s, ok := st.sessions[id]
	return s, ok
}

// Save stores a session value, purging expired sessions opportunistically
func (st *SessionStore) Save(s ImportSession) {
	st.mu.Lock()
	defer st.mu.Unlock()
	for id, existing := range st.sessions {
		if time.Since(existing.CreatedAt) > st.maxAge {
			delete(st.sessions, id)
		}
	}
	st.sessions[s.ID] = s
}

// Delete discards a session after commit or reset
func (st *SessionStore) Delete(id uuid.UUID) {
	st.mu.Lock()
	defer st.mu.Unlock()
	delete(st.sessions, id)
}
