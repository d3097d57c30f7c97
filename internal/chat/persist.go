package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/Epistemic-Technology/paper-assistant/internal/logger"
	"github.com/Epistemic-Technology/paper-assistant/internal/storage"
	"github.com/Epistemic-Technology/paper-assistant/models"
)

// SchemaVersion is the layout version written by this package.
const SchemaVersion = 1

// persistedState is the saved layout. Loading and error flags are never
// saved.
type persistedState struct {
	Version  int                         `json:"version"`
	Messages map[string][]models.Message `json:"messages"`
}

// Migration rewrites data saved at one version into the next version's layout.
type Migration func(data []byte) ([]byte, error)

// migrations maps a stored version to the step that upgrades it by one.
var migrations = map[int]Migration{
	0: migrateV0,
}

// migrateV0 upgrades records written before versioning. Those could hold
// blank messages and null sessions, which the current layout forbids.
func migrateV0(data []byte) ([]byte, error) {
	var old struct {
		Messages map[string][]models.Message `json:"messages"`
	}
	if err := json.Unmarshal(data, &old); err != nil {
		return nil, fmt.Errorf("failed to decode version 0 chat state: %w", err)
	}

	next := persistedState{Version: 1, Messages: make(map[string][]models.Message)}
	for paperID, msgs := range old.Messages {
		var kept []models.Message
		for _, m := range msgs {
			if strings.TrimSpace(m.Content) == "" {
				continue
			}
			kept = append(kept, m)
		}
		if len(kept) > 0 {
			next.Messages[paperID] = kept
		}
	}
	return json.Marshal(next)
}

// Open creates a store backed by state and restores the record saved under
// name, migrating it to SchemaVersion first if needed. A missing record yields
// an empty store.
func Open(ctx context.Context, state storage.StateStore, name string, log logger.Logger, opts ...Option) (*Store, error) {
	if name == "" {
		name = DefaultStorageName
	}
	s := NewStore(append([]Option{WithLogger(log)}, opts...)...)
	s.state = state
	s.name = name

	rec, err := state.LoadState(ctx, name)
	if errors.Is(err, storage.ErrStateNotFound) {
		log.Info("No saved chat state under %s, starting empty", name)
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load chat state: %w", err)
	}

	data, migrated, err := migrate(rec.Version, rec.Data)
	if err != nil {
		return nil, err
	}

	var saved persistedState
	if err := json.Unmarshal(data, &saved); err != nil {
		return nil, fmt.Errorf("failed to decode chat state: %w", err)
	}
	for paperID, msgs := range saved.Messages {
		if len(msgs) > 0 {
			s.sessions[paperID] = msgs
		}
	}

	log.Info("Restored chat state %s: %d sessions (stored version %d)", name, len(s.sessions), rec.Version)
	if migrated {
		s.persist(ctx)
	}
	return s, nil
}

func migrate(version int, data []byte) ([]byte, bool, error) {
	if version > SchemaVersion {
		return nil, false, fmt.Errorf("unsupported chat state version %d (newest known is %d)", version, SchemaVersion)
	}
	migrated := false
	for v := version; v < SchemaVersion; v++ {
		step, ok := migrations[v]
		if !ok {
			return nil, false, fmt.Errorf("no migration from chat state version %d", v)
		}
		next, err := step(data)
		if err != nil {
			return nil, false, fmt.Errorf("failed to migrate chat state from version %d: %w", v, err)
		}
		data = next
		migrated = true
	}
	return data, migrated, nil
}

// persist saves the full message map. Failures are logged; the in-memory log
// stays authoritative and the next mutation saves it again.
func (s *Store) persist(ctx context.Context) {
	if s.state == nil {
		return
	}

	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	s.mu.RLock()
	data, err := json.Marshal(persistedState{Version: SchemaVersion, Messages: s.sessions})
	s.mu.RUnlock()
	if err != nil {
		s.log.Error("Failed to encode chat state: %v", err)
		return
	}

	// A cancelled request must not drop a mutation that already happened.
	ctx = context.WithoutCancel(ctx)
	if err := s.state.SaveState(ctx, storage.StateRecord{Name: s.name, Version: SchemaVersion, Data: data}); err != nil {
		s.log.Error("Failed to save chat state: %v", err)
	}
}
