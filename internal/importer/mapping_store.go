package importer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"pim-service/internal/models"
)

const (
	mappingCacheTTL    = 30 * time.Minute
	mappingCachePrefix = "pim:mapping:"

	// A saved mapping is still usable when most of its headers survive;
	// renamed columns just lose their entry.
	mappingRecallOverlap = 0.7
)

// RememberedMapping is a previously confirmed mapping applied to the
// current header list.
type RememberedMapping struct {
	Columns  map[int]string
	Settings models.ImportSettings
}

// MappingStore persists confirmed column mappings keyed by a signature of
// the header list, with Redis in front of the table. Recall must never fail
// an import: on any store trouble it just returns nothing.
type MappingStore struct {
	db     *gorm.DB
	redis  *redis.Client
	logger *logrus.Entry
}

// NewMappingStore returns a MappingStore. redisClient may be nil.
func NewMappingStore(db *gorm.DB, redisClient *redis.Client, logger *logrus.Logger) *MappingStore {
	return &MappingStore{
		db:     db,
		redis:  redisClient,
		logger: logger.WithField("component", "mapping-store"),
	}
}

// HeaderSignature hashes a normalized, order-independent view of the headers
func HeaderSignature(headers []string) string {
	normalized := make([]string, 0, len(headers))
	for _, h := range headers {
		normalized = append(normalized, normalizeHeader(h))
	}
	sort.Strings(normalized)
	sum := sha256.Sum256([]byte(strings.Join(normalized, "\x1f")))
	return hex.EncodeToString(sum[:])
}

func normalizeHeader(h string) string {
	return strings.ToLower(strings.TrimSpace(h))
}

// columnsByName converts an index-keyed mapping to a header-name-keyed one,
// dropping unmapped and out-of-range entries. The name keying is what lets a
// saved mapping survive column reordering.
func columnsByName(headers []string, columns map[int]string) models.JSON {
	byName := make(models.JSON, len(columns))
	for idx, field := range columns {
		if field == "" || idx < 0 || idx >= len(headers) {
			continue
		}
		byName[normalizeHeader(headers[idx])] = field
	}
	return byName
}

// rebindColumns applies a saved name-keyed mapping to the current header
// order. Headers with no saved entry, and saved fields no longer in the
// vocabulary, come back unmapped rather than failing.
func rebindColumns(headers []string, saved models.JSON) (map[int]string, int) {
	byName := make(map[string]string, len(saved))
	for name, field := range saved {
		if fieldStr, ok := field.(string); ok {
			byName[name] = fieldStr
		}
	}

	columns := make(map[int]string, len(headers))
	matched := 0
	for idx, header := range headers {
		field, ok := byName[normalizeHeader(header)]
		if ok && KnownField(field) {
			columns[idx] = field
			matched++
		} else {
			columns[idx] = ""
		}
	}
	return columns, matched
}

// mappingOverlap scores how much of a saved mapping's headers survive in the
// current header list.
func mappingOverlap(current map[string]bool, saved models.JSON) float64 {
	if len(saved) == 0 {
		return 0
	}
	matched := 0
	for name := range saved {
		if current[name] {
			matched++
		}
	}
	return float64(matched) / float64(len(saved))
}

// Recall returns the saved mapping for a header list, or nil when none is
// usable. Saved entries are stored by header name and re-bound to the
// current column order, so stale entries drop away silently.
func (s *MappingStore) Recall(ctx context.Context, headers []string) *RememberedMapping {
	record := s.lookup(ctx, headers)
	if record == nil {
		return nil
	}

	columns, matched := rebindColumns(headers, record.Columns)
	if matched == 0 {
		return nil
	}

	var settings models.ImportSettings
	if record.Settings != nil {
		if raw, err := json.Marshal(record.Settings); err == nil {
			_ = json.Unmarshal(raw, &settings)
		}
	}

	return &RememberedMapping{Columns: columns, Settings: settings}
}

// Remember persists a confirmed mapping, overwriting any prior entry for the
// same header signature.
func (s *MappingStore) Remember(ctx context.Context, headers []string, columns map[int]string, settings models.ImportSettings) error {
	byName := columnsByName(headers, columns)

	settingsJSON := make(models.JSON)
	if raw, err := json.Marshal(settings); err == nil {
		_ = json.Unmarshal(raw, &settingsJSON)
	}

	record := models.ImportMapping{
		HeaderSignature: HeaderSignature(headers),
		Columns:         byName,
		Settings:        settingsJSON,
	}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "header_signature"}},
		DoUpdates: clause.AssignmentColumns([]string{"columns", "settings", "updated_at"}),
	}).Create(&record).Error
	if err != nil {
		return err
	}

	s.cacheSet(ctx, record.HeaderSignature, &record)
	return nil
}

// lookup finds the stored record: exact signature first, then the best
// name-overlap match so one renamed column does not lose the whole mapping.
func (s *MappingStore) lookup(ctx context.Context, headers []string) *models.ImportMapping {
	signature := HeaderSignature(headers)

	if cached := s.cacheGet(ctx, signature); cached != nil {
		return cached
	}

	var record models.ImportMapping
	err := s.db.WithContext(ctx).Where("header_signature = ?", signature).First(&record).Error
	if err == nil {
		s.cacheSet(ctx, signature, &record)
		return &record
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.WithError(err).Warn("mapping recall failed, proceeding without saved mapping")
		return nil
	}

	return s.bestOverlapMatch(ctx, headers)
}

func (s *MappingStore) bestOverlapMatch(ctx context.Context, headers []string) *models.ImportMapping {
	current := make(map[string]bool, len(headers))
	for _, h := range headers {
		current[normalizeHeader(h)] = true
	}

	var records []models.ImportMapping
	if err := s.db.WithContext(ctx).Find(&records).Error; err != nil {
		s.logger.WithError(err).Warn("mapping overlap scan failed")
		return nil
	}

	var best *models.ImportMapping
	bestScore := mappingRecallOverlap
	for i := range records {
		score := mappingOverlap(current, records[i].Columns)
		if score >= bestScore {
			bestScore = score
			best = &records[i]
		}
	}
	return best
}

func (s *MappingStore) cacheGet(ctx context.Context, signature string) *models.ImportMapping {
	if s.redis == nil {
		return nil
	}
	raw, err := s.redis.Get(ctx, mappingCachePrefix+signature).Bytes()
	if err != nil {
		return nil
	}
	var record models.ImportMapping
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil
	}
	return &record
}

func (s *MappingStore) cacheSet(ctx context.Context, signature string, record *models.ImportMapping) {
	if s.redis == nil {
		return
	}
	if raw, err := json.Marshal(record); err == nil {
		_ = s.redis.Set(ctx, mappingCachePrefix+signature, raw, mappingCacheTTL).Err()
	}
}
