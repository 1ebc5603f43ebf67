package store

import (
	"path/filepath"
	"sync"
	"testing"
	"time"

	"writeflow/internal/db"
	"writeflow/internal/models"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// fakeClock is a steppable wall clock so the time-windowed behavior
// (bans, view window, cooldowns) is deterministic under test.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newTestStore(t *testing.T) (*Store, *fakeClock) {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "store.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	// A single connection keeps concurrent transactions from tripping
	// SQLITE_BUSY; striping still decides the logical ordering.
	sqlDB, err := gdb.DB()
	if err != nil {
		t.Fatalf("unwrap test db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.Migrate(gdb); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}

	boards := []models.Board{
		{Name: "journal", Description: "Daily journaling"},
		{Name: "lounge", Description: "Anything goes"},
	}
	for i := range boards {
		if err := gdb.Create(&boards[i]).Error; err != nil {
			t.Fatalf("seed board: %v", err)
		}
	}

	clock := newFakeClock()
	s := New(gdb)
	s.SetClock(clock.Now)

	// Cooldowns off by default so content tests can write freely; the
	// rate-limiter tests restore the real table themselves.
	for action := range s.Cooldowns {
		s.Cooldowns[action] = 0
	}
	return s, clock
}

func anonIdentity(t *testing.T, s *Store) *models.Identity {
	t.Helper()
	identity, _, err := s.ResolveAnonymous("")
	if err != nil {
		t.Fatalf("resolve anonymous: %v", err)
	}
	return identity
}

func registeredIdentity(t *testing.T, s *Store, nickname string) *models.Identity {
	t.Helper()
	user := models.User{
		Email:    nickname + "@example.com",
		Nickname: nickname,
		Password: "x",
	}
	if err := s.db.Create(&user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	identity, err := s.ResolveUser(user.ID)
	if err != nil {
		t.Fatalf("resolve user: %v", err)
	}
	return identity
}

func mustCreatePost(t *testing.T, s *Store, actor *models.Identity, f PostFields) *models.Post {
	t.Helper()
	if f.BoardID == 0 {
		f.BoardID = 1
	}
	if f.Content == "" {
		f.Content = "hello world"
	}
	if !actor.Registered() && f.Password == "" {
		f.Password = "abc123"
	}
	post, err := s.CreatePost(actor, f)
	if err != nil {
		t.Fatalf("create post: %v", err)
	}
	return post
}
