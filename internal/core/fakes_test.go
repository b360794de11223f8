package core

import (
	"context"
	"errors"
	"sync"
	"time"
)

type fakeClassifier struct {
	assessment ReputationAssessment
	err        error
	calls      int
}

func (f *fakeClassifier) Classify(rawURL string) (ReputationAssessment, error) {
	f.calls++
	return f.assessment, f.err
}

type fakeLookup struct {
	result func(ctx context.Context) ThreatLookupResult
	calls  int
}

func (f *fakeLookup) Lookup(ctx context.Context, rawURL string) ThreatLookupResult {
	f.calls++
	if f.result == nil {
		return ThreatLookupResult{IsSafe: true}
	}
	return f.result(ctx)
}

type fakeProber struct {
	result ProbeResult
	calls  int
}

func (f *fakeProber) Probe(ctx context.Context, rawURL string) ProbeResult {
	f.calls++
	return f.result
}

type fakeCache struct {
	mu      sync.Mutex
	records map[string]VerificationRecord
	getErr  error
	setErr  error
	gets    int
	sets    int
	// setCtxErr is the context error seen by the last Set
	setCtxErr error
}

func newFakeCache() *fakeCache {
	return &fakeCache{records: make(map[string]VerificationRecord)}
}

func (f *fakeCache) Get(ctx context.Context, url string) (*VerificationRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	if f.getErr != nil {
		return nil, f.getErr
	}
	r, ok := f.records[url]
	if !ok {
		return nil, ErrCacheMiss
	}
	return &r, nil
}

func (f *fakeCache) Set(ctx context.Context, record *VerificationRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sets++
	f.setCtxErr = ctx.Err()
	if f.setErr != nil {
		return f.setErr
	}
	f.records[record.URL] = *record
	return nil
}

var errStoreDown = errors.New("store unavailable")

// clock is a settable time source
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
