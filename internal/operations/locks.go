package operations

import "sync"

// paperLocks hands out one mutex per paper ID. Entries are dropped once no
// goroutine holds or waits for them.
type paperLocks struct {
	mu    sync.Mutex
	locks map[string]*paperLock
}

type paperLock struct {
	mu   sync.Mutex
	refs int
}

// Lock blocks until the paper's mutex is held and returns its release func.
func (p *paperLocks) Lock(paperID string) (unlock func()) {
	p.mu.Lock()
	if p.locks == nil {
		p.locks = make(map[string]*paperLock)
	}
	l, ok := p.locks[paperID]
	if !ok {
		l = &paperLock{}
		p.locks[paperID] = l
	}
	l.refs++
	p.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		p.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(p.locks, paperID)
		}
		p.mu.Unlock()
	}
}
