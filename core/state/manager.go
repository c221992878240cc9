package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"lendpool/core/types"
	"lendpool/native/lending"
	"lendpool/storage"
)

const (
	assetPrefix    = "lending/asset/"
	assetIndexKey  = "lending/assets"
	supplyPrefix   = "lending/supply/"
	borrowPrefix   = "lending/borrow/"
	userListPrefix = "lending/userassets/"
	accountPrefix  = "accounts/"
)

// Manager is the keyed store backing the lending engine. Writes are staged
// in an overlay and flushed to the database only on Commit, giving every
// engine operation ledger-style all-or-nothing semantics: a failed invariant
// check discards the overlay and no staged balance move survives.
type Manager struct {
	db    storage.Database
	mu    sync.RWMutex
	dirty map[string][]byte
}

// NewManager wraps a database in a transactional manager.
func NewManager(db storage.Database) *Manager {
	return &Manager{db: db, dirty: make(map[string][]byte)}
}

func (m *Manager) read(key string) ([]byte, bool, error) {
	m.mu.RLock()
	staged, ok := m.dirty[key]
	m.mu.RUnlock()
	if ok {
		return staged, true, nil
	}
	value, err := m.db.Get([]byte(key))
	if errors.Is(err, storage.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

func (m *Manager) getJSON(key string, out any) (bool, error) {
	raw, found, err := m.read(key)
	if err != nil || !found {
		return false, err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("state: decode %s: %w", key, err)
	}
	return true, nil
}

func (m *Manager) putJSON(key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("state: encode %s: %w", key, err)
	}
	m.mu.Lock()
	m.dirty[key] = raw
	m.mu.Unlock()
	return nil
}

// Commit flushes staged writes to the database in deterministic key order.
func (m *Manager) Commit() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.dirty))
	for key := range m.dirty {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if err := m.db.Put([]byte(key), m.dirty[key]); err != nil {
			return fmt.Errorf("state: commit %s: %w", key, err)
		}
	}
	m.dirty = make(map[string][]byte)
	return nil
}

// Discard drops all staged writes.
func (m *Manager) Discard() {
	m.mu.Lock()
	m.dirty = make(map[string][]byte)
	m.mu.Unlock()
}

// --- lending engine state surface ---

func (m *Manager) GetAsset(asset string) (*lending.AssetConfig, bool, error) {
	cfg := &lending.AssetConfig{}
	found, err := m.getJSON(assetPrefix+asset, cfg)
	if err != nil || !found {
		return nil, false, err
	}
	cfg.EnsureDefaults()
	return cfg, true, nil
}

func (m *Manager) PutAsset(cfg *lending.AssetConfig) error {
	if cfg == nil {
		return fmt.Errorf("state: nil asset config")
	}
	index, err := m.ListAssets()
	if err != nil {
		return err
	}
	known := false
	for _, entry := range index {
		if entry == cfg.Asset {
			known = true
			break
		}
	}
	if !known {
		index = append(index, cfg.Asset)
		sort.Strings(index)
		if err := m.putJSON(assetIndexKey, index); err != nil {
			return err
		}
	}
	return m.putJSON(assetPrefix+cfg.Asset, cfg)
}

func (m *Manager) ListAssets() ([]string, error) {
	var index []string
	if _, err := m.getJSON(assetIndexKey, &index); err != nil {
		return nil, err
	}
	return index, nil
}

func (m *Manager) GetSupply(asset, user string) (*lending.SupplyPosition, bool, error) {
	pos := &lending.SupplyPosition{}
	found, err := m.getJSON(supplyPrefix+asset+"/"+user, pos)
	if err != nil || !found {
		return nil, false, err
	}
	pos.EnsureDefaults()
	return pos, true, nil
}

func (m *Manager) PutSupply(pos *lending.SupplyPosition) error {
	if pos == nil {
		return fmt.Errorf("state: nil supply position")
	}
	return m.putJSON(supplyPrefix+pos.Asset+"/"+pos.User, pos)
}

func (m *Manager) GetBorrow(asset, user string) (*lending.BorrowPosition, bool, error) {
	pos := &lending.BorrowPosition{}
	found, err := m.getJSON(borrowPrefix+asset+"/"+user, pos)
	if err != nil || !found {
		return nil, false, err
	}
	pos.EnsureDefaults()
	return pos, true, nil
}

func (m *Manager) PutBorrow(pos *lending.BorrowPosition) error {
	if pos == nil {
		return fmt.Errorf("state: nil borrow position")
	}
	return m.putJSON(borrowPrefix+pos.Asset+"/"+pos.User, pos)
}

func (m *Manager) GetAssetList(user string) (*lending.AssetList, error) {
	list := &lending.AssetList{}
	if _, err := m.getJSON(userListPrefix+user, list); err != nil {
		return nil, err
	}
	return list, nil
}

func (m *Manager) PutAssetList(user string, list *lending.AssetList) error {
	if list == nil {
		list = &lending.AssetList{}
	}
	return m.putJSON(userListPrefix+user, list)
}

func (m *Manager) GetAccount(addr string) (*types.Account, error) {
	acc := types.NewAccount()
	if _, err := m.getJSON(accountPrefix+addr, acc); err != nil {
		return nil, err
	}
	acc.EnsureDefaults()
	return acc, nil
}

func (m *Manager) PutAccount(addr string, acc *types.Account) error {
	if acc == nil {
		return fmt.Errorf("state: nil account")
	}
	return m.putJSON(accountPrefix+addr, acc)
}
