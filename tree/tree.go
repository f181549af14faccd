package tree

import (
	"sync"

	"github.com/cosmos/iavl"
	dbm "github.com/tendermint/tm-db"
)

// Committer is a state concern that can flush its dirty records into the
// tree. After a successful save every committer is rebased onto the new
// immutable version.
type Committer interface {
	Commit(db *iavl.MutableTree, version int64) error
	SetImmutableTree(immutableTree *iavl.ImmutableTree)
}

type ReadOnlyTree interface {
	Get(key []byte) (index int64, value []byte)
	Version() int64
	Hash() []byte
	Iterate(fn func(key []byte, value []byte) bool) (stopped bool)
}

// MTree is a mutable versioned tree. Saving a version is the single commit
// point of a state transition: mutations that were never saved simply do
// not exist in the next loaded version, which is what provides the
// all-or-nothing undo scope.
type MTree interface {
	ReadOnlyTree
	Set(key, value []byte) bool
	Remove(key []byte) ([]byte, bool)
	Commit(committers ...Committer) ([]byte, int64, error)
	GetLastImmutable() *iavl.ImmutableTree
	LoadVersion(targetVersion int64) (int64, error)
	DeleteVersionIfExists(version int64) error
	AvailableVersions() []int
}

// NewMutableTree opens the tree at the given height (0 means empty).
func NewMutableTree(height uint64, db dbm.DB, cacheSize int, initialVersion uint64) (MTree, error) {
	tree, err := iavl.NewMutableTreeWithOpts(db, cacheSize, &iavl.Options{InitialVersion: initialVersion})
	if err != nil {
		return nil, err
	}

	if height == 0 {
		// Load whatever the latest saved version is; a fresh db stays empty.
		if _, err := tree.LoadVersion(0); err != nil {
			return nil, err
		}
	} else {
		if _, err := tree.LoadVersionForOverwriting(int64(height)); err != nil {
			return nil, err
		}
	}

	return &mutableTree{tree: tree}, nil
}

// NewImmutableTree loads a read-only tree at the given height.
//
// Warning: returns the MTree interface, but you should only use ReadOnlyTree
func NewImmutableTree(height uint64, db dbm.DB) (MTree, error) {
	tree, err := NewMutableTree(0, db, 1024, 0)
	if err != nil {
		return nil, err
	}

	if _, err := tree.(*mutableTree).tree.LazyLoadVersion(int64(height)); err != nil {
		return nil, err
	}

	return tree, nil
}

type mutableTree struct {
	tree *iavl.MutableTree
	lock sync.RWMutex
}

func (t *mutableTree) GetLastImmutable() *iavl.ImmutableTree {
	t.lock.RLock()
	defer t.lock.RUnlock()

	return t.tree.ImmutableTree
}

// Commit flushes every committer into the tree, saves a new version and
// rebases the committers onto it.
func (t *mutableTree) Commit(committers ...Committer) ([]byte, int64, error) {
	t.lock.Lock()
	defer t.lock.Unlock()

	version := t.tree.Version() + 1
	for _, committer := range committers {
		if err := committer.Commit(t.tree, version); err != nil {
			return nil, 0, err
		}
	}

	hash, version, err := t.tree.SaveVersion()
	if err != nil {
		return nil, 0, err
	}

	for _, committer := range committers {
		committer.SetImmutableTree(t.tree.ImmutableTree)
	}

	return hash, version, nil
}

func (t *mutableTree) Iterate(fn func(key []byte, value []byte) bool) (stopped bool) {
	t.lock.RLock()
	defer t.lock.RUnlock()

	return t.tree.Iterate(fn)
}

func (t *mutableTree) Hash() []byte {
	t.lock.RLock()
	defer t.lock.RUnlock()

	return t.tree.Hash()
}

func (t *mutableTree) Version() int64 {
	t.lock.RLock()
	defer t.lock.RUnlock()

	return t.tree.Version()
}

func (t *mutableTree) Get(key []byte) (index int64, value []byte) {
	t.lock.RLock()
	defer t.lock.RUnlock()

	return t.tree.Get(key)
}

func (t *mutableTree) Set(key, value []byte) bool {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.tree.Set(key, value)
}

func (t *mutableTree) Remove(key []byte) ([]byte, bool) {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.tree.Remove(key)
}

func (t *mutableTree) LoadVersion(targetVersion int64) (int64, error) {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.tree.LoadVersion(targetVersion)
}

func (t *mutableTree) DeleteVersionIfExists(version int64) error {
	t.lock.Lock()
	defer t.lock.Unlock()

	if !t.tree.VersionExists(version) {
		return nil
	}

	return t.tree.DeleteVersion(version)
}

func (t *mutableTree) AvailableVersions() []int {
	t.lock.RLock()
	defer t.lock.RUnlock()

	return t.tree.AvailableVersions()
}
