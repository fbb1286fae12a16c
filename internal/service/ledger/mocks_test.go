package ledger

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"sync"

	"github.com/splax/ledger/internal/domain"
	"github.com/splax/ledger/internal/repository"
)

// memoryLedger backs both tag and transaction mocks so tag deletion can
// detach transactions the way the database does.
type memoryLedger struct {
	mu        sync.Mutex
	nextTag   int64
	nextTxn   int64
	tags      map[int64]domain.Tag
	txns      map[int64]domain.Transaction
	rangeHits int
	err       error
}

func newMemoryLedger() *memoryLedger {
	return &memoryLedger{
		tags: make(map[int64]domain.Tag),
		txns: make(map[int64]domain.Transaction),
	}
}

type tagRepoMock struct{ *memoryLedger }

type txnRepoMock struct{ *memoryLedger }

func (m tagRepoMock) ListByOwner(_ context.Context, userID int64) ([]domain.Tag, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	var out []domain.Tag
	for _, t := range m.tags {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m tagRepoMock) Create(_ context.Context, tag *domain.Tag) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	for _, t := range m.tags {
		if t.UserID == tag.UserID && t.Name == tag.Name {
			return repository.ErrConflict
		}
	}
	m.nextTag++
	tag.ID = m.nextTag
	m.tags[tag.ID] = *tag
	return nil
}

func (m tagRepoMock) DeleteOwned(_ context.Context, userID, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tags[id]
	if !ok || t.UserID != userID {
		return repository.ErrNotFound
	}
	delete(m.tags, id)
	for txnID, txn := range m.txns {
		if txn.TagID != nil && *txn.TagID == id {
			txn.TagID = nil
			m.txns[txnID] = txn
		}
	}
	return nil
}

func (m tagRepoMock) FindOwned(_ context.Context, userID, id int64) (*domain.Tag, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tags[id]
	if !ok || t.UserID != userID {
		return nil, repository.ErrNotFound
	}
	return &t, nil
}

func (m txnRepoMock) ListByOwner(_ context.Context, userID int64) ([]domain.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Transaction
	for _, t := range m.txns {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m txnRepoMock) Create(_ context.Context, txn *domain.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if txn.TagID != nil {
		if _, ok := m.tags[*txn.TagID]; !ok {
			return repository.ErrNotFound
		}
	}
	m.nextTxn++
	txn.ID = m.nextTxn
	m.txns[txn.ID] = *txn
	return nil
}

func (m txnRepoMock) DeleteOwned(_ context.Context, userID, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.txns[id]
	if !ok || t.UserID != userID {
		return repository.ErrNotFound
	}
	delete(m.txns, id)
	return nil
}

func (m txnRepoMock) ListInRange(_ context.Context, userID int64, begin, end domain.Date) ([]domain.TransactionView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rangeHits++
	if m.err != nil {
		return nil, m.err
	}
	var out []domain.TransactionView
	for _, t := range m.txns {
		if t.UserID != userID || t.TransactionDate.Before(begin) || t.TransactionDate.After(end) {
			continue
		}
		view := domain.TransactionView{Transaction: t}
		if t.TagID != nil {
			if tag, ok := m.tags[*t.TagID]; ok {
				name := tag.Name
				view.TagName = &name
			}
		}
		out = append(out, view)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].TransactionDate, out[j].TransactionDate
		if a != b {
			return a.Before(b)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// insertRaw stores a transaction bypassing service validation.
func (m *memoryLedger) insertRaw(txn domain.Transaction) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextTxn++
	txn.ID = m.nextTxn
	m.txns[txn.ID] = txn
}

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newService(store *memoryLedger) Service {
	return New(tagRepoMock{store}, txnRepoMock{store}, newLogger())
}
