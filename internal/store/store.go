package store

import (
	"hash/fnv"
	"strconv"
	"sync"
	"time"

	"gorm.io/gorm"
)

// Rate-limited action types.
const (
	ActionPost    = "post"
	ActionComment = "comment"
	ActionReport  = "report"
)

// Content limits and windows.
const (
	PageSize            = 15
	MaxTitleRunes       = 50
	MaxTags             = 30
	MaxNicknameRunes    = 10
	MaxStamps           = 5
	MaxStampLabelRunes  = 20
	ThreadDepthLimit    = 3
	ReportHideThreshold = 15
	ViewWindow          = time.Hour
)

// DefaultCooldowns is the per-action cooldown table. Values can be
// overridden on a Store before it serves traffic.
var DefaultCooldowns = map[string]time.Duration{
	ActionPost:    60 * time.Second,
	ActionComment: 10 * time.Second,
	ActionReport:  60 * time.Second,
}

// Store is the authoritative content and moderation store. All mutating
// operations take the acting Identity as an explicit parameter and are
// gated by the moderation ledger and the rate limiter before touching
// content rows.
//
// Each keyed check-then-act sequence (dedup record + counter, ban check +
// mutation, rate check + action + record) runs under a striped per-key
// mutex plus a gorm transaction, so two concurrent calls for the same key
// can never double-apply.
type Store struct {
	db        *gorm.DB
	now       func() time.Time
	Cooldowns map[string]time.Duration

	locks [64]sync.Mutex
}

func New(db *gorm.DB) *Store {
	cooldowns := make(map[string]time.Duration, len(DefaultCooldowns))
	for k, v := range DefaultCooldowns {
		cooldowns[k] = v
	}
	return &Store{
		db:        db,
		now:       time.Now,
		Cooldowns: cooldowns,
	}
}

// SetClock replaces the wall clock. Tests use a fixed, steppable clock so
// ban expiry, view windows and cooldowns are deterministic.
func (s *Store) SetClock(now func() time.Time) {
	s.now = now
}

// lock acquires the stripe for key and returns its release func.
func (s *Store) lock(key string) func() {
	mu := &s.locks[s.stripe(key)]
	mu.Lock()
	return mu.Unlock
}

// lock2 acquires the stripes for two keys. Stripes are taken in index
// order and a shared stripe is taken once, so nested acquisition can
// never deadlock.
func (s *Store) lock2(a, b string) func() {
	i, j := s.stripe(a), s.stripe(b)
	if i == j {
		s.locks[i].Lock()
		return s.locks[i].Unlock
	}
	if i > j {
		i, j = j, i
	}
	s.locks[i].Lock()
	s.locks[j].Lock()
	return func() {
		s.locks[j].Unlock()
		s.locks[i].Unlock()
	}
}

func (s *Store) stripe(key string) int {
	h := fnv.New32a()
	h.Write([]byte(key))
	return int(h.Sum32() % uint32(len(s.locks)))
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
