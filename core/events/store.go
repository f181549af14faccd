package events

import (
	"encoding/binary"
	"sync"

	"github.com/tendermint/go-amino"
	db "github.com/tendermint/tm-db"
)

// IEventsDB is the virtual-operation history store. Events are buffered in
// memory until CommitEvents persists them under the committed version, so
// a rolled-back pass leaves no trace after ResetPending.
type IEventsDB interface {
	AddEvent(event Event)
	LoadEvents(version uint32) Events
	CommitEvents(version uint32) error
	ResetPending()
}

type eventsStore struct {
	cdc     *amino.Codec
	db      db.DB
	pending []Event

	lock sync.Mutex
}

// NewEventsStore creates the events store over given db
func NewEventsStore(db db.DB) IEventsDB {
	codec := amino.NewCodec()
	codec.RegisterInterface((*Event)(nil), nil)
	codec.RegisterConcrete(&FBADistributeEvent{}, TypeFBADistributeEvent, nil)
	codec.RegisterConcrete(&OrderCreatedEvent{}, TypeOrderCreatedEvent, nil)
	codec.RegisterConcrete(&OrderFilledEvent{}, TypeOrderFilledEvent, nil)
	codec.RegisterConcrete(&OrderCanceledEvent{}, TypeOrderCanceledEvent, nil)
	codec.RegisterConcrete(&AccountUpgradeEvent{}, TypeAccountUpgradeEvent, nil)
	codec.RegisterConcrete(&BudgetEvent{}, TypeBudgetEvent, nil)

	return &eventsStore{
		cdc: codec,
		db:  db,
	}
}

func (store *eventsStore) AddEvent(event Event) {
	store.lock.Lock()
	defer store.lock.Unlock()

	store.pending = append(store.pending, event)
}

func (store *eventsStore) CommitEvents(version uint32) error {
	store.lock.Lock()
	defer store.lock.Unlock()

	bytes, err := store.cdc.MarshalBinaryBare(store.pending)
	if err != nil {
		return err
	}
	if bytes == nil {
		bytes = []byte{}
	}

	store.pending = nil

	return store.db.Set(versionKey(version), bytes)
}

func (store *eventsStore) LoadEvents(version uint32) Events {
	bytes, err := store.db.Get(versionKey(version))
	if err != nil {
		panic(err)
	}

	if len(bytes) == 0 {
		return Events{}
	}

	var items Events
	if err := store.cdc.UnmarshalBinaryBare(bytes, &items); err != nil {
		panic(err)
	}

	return items
}

func (store *eventsStore) ResetPending() {
	store.lock.Lock()
	defer store.lock.Unlock()

	store.pending = nil
}

func versionKey(version uint32) []byte {
	key := make([]byte, 4)
	binary.BigEndian.PutUint32(key, version)
	return key
}
