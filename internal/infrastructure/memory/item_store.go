package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"auction-ledger/internal/domain"
)

// ItemStore is the in-process store backend. It mirrors the durable
// backends' contract, including the serialized record size bound, so
// the engine behaves identically against it.
type ItemStore struct {
	mu            sync.RWMutex
	items         map[domain.ItemID][]byte
	maxRecordSize int
}

func NewItemStore(maxRecordSize int) *ItemStore {
	return &ItemStore{
		items:         make(map[domain.ItemID][]byte),
		maxRecordSize: maxRecordSize,
	}
}

func (s *ItemStore) Get(ctx context.Context, id domain.ItemID) (*domain.Item, error) {
	s.mu.RLock()
	record, ok := s.items[id]
	s.mu.RUnlock()

	if !ok {
		return nil, nil
	}
	return decodeItem(record)
}

func (s *ItemStore) Insert(ctx context.Context, id domain.ItemID, item *domain.Item) (*domain.Item, error) {
	record, err := encodeItem(item, s.maxRecordSize)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	previous, ok := s.items[id]
	s.items[id] = record
	s.mu.Unlock()

	if !ok {
		return nil, nil
	}
	return decodeItem(previous)
}

func (s *ItemStore) Iterate(ctx context.Context, fn func(id domain.ItemID, item *domain.Item) bool) error {
	s.mu.RLock()
	ids := make([]domain.ItemID, 0, len(s.items))
	for id := range s.items {
		ids = append(ids, id)
	}
	records := make(map[domain.ItemID][]byte, len(s.items))
	for id, record := range s.items {
		records[id] = record
	}
	s.mu.RUnlock()

	// Ascending id keeps scan results reproducible.
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		item, err := decodeItem(records[id])
		if err != nil {
			return err
		}
		if !fn(id, item) {
			break
		}
	}
	return nil
}

func (s *ItemStore) Len(ctx context.Context) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return uint64(len(s.items)), nil
}

func encodeItem(item *domain.Item, maxRecordSize int) ([]byte, error) {
	record, err := json.Marshal(item)
	if err != nil {
		return nil, err
	}
	if maxRecordSize > 0 && len(record) > maxRecordSize {
		return nil, fmt.Errorf("item record %d bytes exceeds limit of %d", len(record), maxRecordSize)
	}
	return record, nil
}

func decodeItem(record []byte) (*domain.Item, error) {
	var item domain.Item
	if err := json.Unmarshal(record, &item); err != nil {
		return nil, err
	}
	return &item, nil
}
