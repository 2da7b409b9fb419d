package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/dgraph-io/badger/v3"
	"github.com/google/uuid"
)

// BadgerOccupancyRepo хранит проекцию занятости локально в BadgerDB.
// Подходит для одиночного узла без Redis: проекция переживает перезапуск.
type BadgerOccupancyRepo struct {
	db      *badger.DB
	mutex   sync.RWMutex
	isReady bool
}

// NewBadgerOccupancyRepo открывает BadgerDB в каталоге path.
// Пустой path открывает базу в памяти (для тестов).
func NewBadgerOccupancyRepo(path string) (*BadgerOccupancyRepo, error) {
	opts := badger.DefaultOptions(path)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	opts.Logger = nil // Отключаем логирование BadgerDB

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть BadgerDB: %w", err)
	}

	return &BadgerOccupancyRepo{db: db, isReady: true}, nil
}

func occupancyKey(objectID uuid.UUID) []byte {
	return []byte("occupancy:" + objectID.String())
}

// Save записывает срез, если его версия новее сохранённой
func (r *BadgerOccupancyRepo) Save(ctx context.Context, occ Occupancy) (bool, error) {
	if occ.ObjectID == uuid.Nil {
		return false, fmt.Errorf("недействительный objectID: %s", occ.ObjectID)
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}

	r.mutex.RLock()
	defer r.mutex.RUnlock()
	if !r.isReady {
		return false, fmt.Errorf("хранилище не готово")
	}

	data, err := json.Marshal(occ)
	if err != nil {
		return false, fmt.Errorf("ошибка сериализации занятости: %w", err)
	}

	key := occupancyKey(occ.ObjectID)
	for {
		applied := false
		err = r.db.Update(func(txn *badger.Txn) error {
			stored, found, err := readOccupancy(txn, key)
			if err != nil {
				return err
			}
			if !newer(stored, found, occ) {
				return nil
			}
			applied = true
			return txn.Set(key, data)
		})
		if errors.Is(err, badger.ErrConflict) {
			continue
		}
		if err != nil {
			return false, fmt.Errorf("ошибка сохранения в BadgerDB: %w", err)
		}
		return applied, nil
	}
}

// Load загружает срез объекта
func (r *BadgerOccupancyRepo) Load(ctx context.Context, objectID uuid.UUID) (Occupancy, bool, error) {
	if err := ctx.Err(); err != nil {
		return Occupancy{}, false, err
	}

	r.mutex.RLock()
	defer r.mutex.RUnlock()
	if !r.isReady {
		return Occupancy{}, false, fmt.Errorf("хранилище не готово")
	}

	var (
		occ   Occupancy
		found bool
	)
	err := r.db.View(func(txn *badger.Txn) error {
		var err error
		occ, found, err = readOccupancy(txn, occupancyKey(objectID))
		return err
	})
	if err != nil {
		return Occupancy{}, false, fmt.Errorf("ошибка чтения из BadgerDB: %w", err)
	}
	if !found || occ.Vacant() {
		return Occupancy{}, false, nil
	}
	return occ, true, nil
}

// Delete удаляет срез объекта
func (r *BadgerOccupancyRepo) Delete(ctx context.Context, objectID uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mutex.RLock()
	defer r.mutex.RUnlock()
	if !r.isReady {
		return fmt.Errorf("хранилище не готово")
	}

	return r.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(occupancyKey(objectID))
	})
}

// Close закрывает хранилище
func (r *BadgerOccupancyRepo) Close() error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if !r.isReady {
		return nil
	}
	r.isReady = false
	return r.db.Close()
}

func readOccupancy(txn *badger.Txn, key []byte) (Occupancy, bool, error) {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return Occupancy{}, false, nil
	}
	if err != nil {
		return Occupancy{}, false, err
	}

	var occ Occupancy
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &occ)
	})
	if err != nil {
		return Occupancy{}, false, fmt.Errorf("ошибка десериализации занятости: %w", err)
	}
	return occ, true, nil
}
