package fakesessionrepo

import (
	"context"
	"sync"

	apperrors "github.com/jrsteele09/timetomeet/internal/errors"
	"github.com/jrsteele09/timetomeet/sessions"
)

var _ sessions.Repo = (*FakeSessionRepo)(nil)

// FakeSessionRepo keeps session records in memory, keyed by user ID.
// Returned records are copies.
type FakeSessionRepo struct {
	sessions map[string]sessions.Record
	lock     sync.RWMutex

	// Err, when set, is returned by every operation
	Err error
}

func NewFakeSessionRepo() *FakeSessionRepo {
	return &FakeSessionRepo{
		sessions: make(map[string]sessions.Record),
	}
}

func (sr *FakeSessionRepo) Upsert(_ context.Context, record *sessions.Record) (*sessions.Record, error) {
	sr.lock.Lock()
	defer sr.lock.Unlock()

	if sr.Err != nil {
		return nil, sr.Err
	}
	sr.sessions[record.UserID] = *record
	stored := *record
	return &stored, nil
}

func (sr *FakeSessionRepo) Get(_ context.Context, userID string) (*sessions.Record, error) {
	sr.lock.RLock()
	defer sr.lock.RUnlock()

	if sr.Err != nil {
		return nil, sr.Err
	}
	record, ok := sr.sessions[userID]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &record, nil
}

func (sr *FakeSessionRepo) Delete(_ context.Context, userID string) error {
	sr.lock.Lock()
	defer sr.lock.Unlock()

	if sr.Err != nil {
		return sr.Err
	}
	if _, ok := sr.sessions[userID]; !ok {
		return apperrors.ErrNotFound
	}
	delete(sr.sessions, userID)
	return nil
}

// Count returns the number of stored records
func (sr *FakeSessionRepo) Count() int {
	sr.lock.RLock()
	defer sr.lock.RUnlock()
	return len(sr.sessions)
}
