package processing

import (
	"sort"
	"sync"

	"github.com/Epistemic-Technology/paper-assistant/models"
)

// Papers is a concurrency-safe collection of papers keyed by ID. Writes to one
// paper are serialized by that paper's own lock; writes to different papers
// do not contend beyond the brief map lookup.
type Papers struct {
	mu      sync.RWMutex
	entries map[string]*entry
}

type entry struct {
	mu      sync.Mutex
	paper   models.Paper
	stage   Stage
	deleted bool
}

func NewPapers() *Papers {
	return &Papers{entries: make(map[string]*entry)}
}

// Upsert inserts the paper, or replaces the paper with the same ID.
func (p *Papers) Upsert(paper models.Paper) {
	p.mu.Lock()
	e, ok := p.entries[paper.ID]
	if !ok {
		e = &entry{}
		p.entries[paper.ID] = e
	}
	p.mu.Unlock()

	e.mu.Lock()
	defer e.mu.Unlock()
	e.paper = paper
	e.stage = StageForProgress(paper.Progress)
	e.deleted = false
}

// Get returns a copy of the paper.
func (p *Papers) Get(id string) (models.Paper, bool) {
	e := p.lookup(id)
	if e == nil {
		return models.Paper{}, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.deleted {
		return models.Paper{}, false
	}
	return e.paper, true
}

// List returns copies of all papers, newest upload first.
func (p *Papers) List() []models.Paper {
	p.mu.RLock()
	entries := make([]*entry, 0, len(p.entries))
	for _, e := range p.entries {
		entries = append(entries, e)
	}
	p.mu.RUnlock()

	papers := make([]models.Paper, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		if !e.deleted {
			papers = append(papers, e.paper)
		}
		e.mu.Unlock()
	}

	sort.Slice(papers, func(i, j int) bool {
		if papers[i].UploadedAt.Equal(papers[j].UploadedAt) {
			return papers[i].ID < papers[j].ID
		}
		return papers[i].UploadedAt.After(papers[j].UploadedAt)
	})
	return papers
}

// Delete removes the paper. Updates already waiting on the paper's lock see it
// as missing. It reports whether the paper existed.
func (p *Papers) Delete(id string) bool {
	p.mu.Lock()
	e, ok := p.entries[id]
	delete(p.entries, id)
	p.mu.Unlock()
	if !ok {
		return false
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.deleted = true
	return true
}

// update applies fn to the paper under its lock and returns the result.
func (p *Papers) update(id string, fn func(e *entry) error) (models.Paper, error) {
	e := p.lookup(id)
	if e == nil {
		return models.Paper{}, ErrPaperNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.deleted {
		return models.Paper{}, ErrPaperNotFound
	}
	if err := fn(e); err != nil {
		return e.paper, err
	}
	return e.paper, nil
}

func (p *Papers) lookup(id string) *entry {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.entries[id]
}
