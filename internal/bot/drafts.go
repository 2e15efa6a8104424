package bot

import (
	"sync"
	"time"
)

// draftTTL bounds how long an abandoned wizard survives.
const draftTTL = 15 * time.Minute

// Draft is one user's in-flight event wizard. WhenUnix comes from the
// free-text field; the day/hour/minute selects override it when used.
type Draft struct {
	UserID      string
	GuildID     string
	Name        string
	Description string
	WhenText    string
	WhenUnix    int64
	Max         int

	Day    string // YYYY-MM-DD from the day select
	Hour   int    // -1 until chosen
	Minute int

	UpdatedAt time.Time
}

// StartUnix resolves the draft's start instant: selects win over the
// parsed free text, unresolved drafts return 0.
func (d *Draft) StartUnix(loc *time.Location) int64 {
	if d.Day != "" && d.Hour >= 0 {
		day, err := time.ParseInLocation("2006-01-02", d.Day, loc)
		if err != nil {
			return d.WhenUnix
		}
		return time.Date(day.Year(), day.Month(), day.Day(), d.Hour, d.Minute, 0, 0, loc).Unix()
	}
	return d.WhenUnix
}

// DraftStore keeps at most one draft per user. Stale drafts are pruned
// on every write.
type DraftStore struct {
	mu     sync.Mutex
	drafts map[string]*Draft
	now    func() time.Time
}

func NewDraftStore() *DraftStore {
	return &DraftStore{
		drafts: map[string]*Draft{},
		now:    time.Now,
	}
}

func (s *DraftStore) Put(d *Draft) {
	now := s.now()
	d.UpdatedAt = now
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, old := range s.drafts {
		if now.Sub(old.UpdatedAt) > draftTTL {
			delete(s.drafts, id)
		}
	}
	s.drafts[d.UserID] = d
}

func (s *DraftStore) Get(userID string) (*Draft, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.drafts[userID]
	if !ok || s.now().Sub(d.UpdatedAt) > draftTTL {
		delete(s.drafts, userID)
		return nil, false
	}
	return d, true
}

func (s *DraftStore) Delete(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.drafts, userID)
}
