// Copyright 2021 Kaleido

// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at

//     http://www.apache.org/licenses/LICENSE-2.0

// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package kvstore

import (
	"github.com/hyperledger/firefly-loyaltyconnect/internal/errors"
	log "github.com/sirupsen/logrus"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/iterator"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// ErrorNotFound signal error for not found
var ErrorNotFound = leveldb.ErrNotFound

// KVIterator walks the keys under a prefix, in key order
type KVIterator interface {
	Key() string
	Value() []byte
	First() bool
	Last() bool
	Next() bool
	Prev() bool
	Release()
}

// Batch collects puts and deletes that are written atomically
type Batch struct {
	b leveldb.Batch
}

func (b *Batch) Put(key string, val []byte) {
	b.b.Put([]byte(key), val)
}

func (b *Batch) Delete(key string) {
	b.b.Delete([]byte(key))
}

// Len is the number of puts and deletes in the batch
func (b *Batch) Len() int {
	return b.b.Len()
}

// KVStore is an ordered key value store
type KVStore interface {
	Init() error
	Get(key string) ([]byte, error)
	Write(batch *Batch) error
	NewIteratorWithPrefix(prefix string) KVIterator
	Close() error
}

type levelDBKeyValueStore struct {
	path string
	db   *leveldb.DB
}

func (k *levelDBKeyValueStore) Init() error {
	db, err := leveldb.OpenFile(k.path, nil)
	if err != nil {
		return errors.Errorf(errors.KVStoreDBLoad, k.path, err)
	}
	k.db = db
	return nil
}

func (k *levelDBKeyValueStore) Get(key string) ([]byte, error) {
	b, err := k.db.Get([]byte(key), nil)
	if err != nil && err != leveldb.ErrNotFound {
		log.Warnf("LDB %s Get '%s' failed: %s", k.path, key, err)
	}
	return b, err
}

func (k *levelDBKeyValueStore) Write(batch *Batch) error {
	err := k.db.Write(&batch.b, nil)
	if err != nil {
		log.Warnf("LDB %s Write of %d entries failed: %s", k.path, batch.Len(), err)
	}
	return err
}

func (k *levelDBKeyValueStore) NewIteratorWithPrefix(prefix string) KVIterator {
	return &levelDBKeyIterator{
		i: k.db.NewIterator(util.BytesPrefix([]byte(prefix)), nil),
	}
}

type levelDBKeyIterator struct {
	i iterator.Iterator
}

func (k *levelDBKeyIterator) Key() string {
	return string(k.i.Key())
}

func (k *levelDBKeyIterator) Value() []byte {
	return k.i.Value()
}

func (k *levelDBKeyIterator) First() bool {
	return k.i.First()
}

func (k *levelDBKeyIterator) Last() bool {
	return k.i.Last()
}

func (k *levelDBKeyIterator) Next() bool {
	return k.i.Next()
}

func (k *levelDBKeyIterator) Prev() bool {
	return k.i.Prev()
}

func (k *levelDBKeyIterator) Release() {
	k.i.Release()
}

func (k *levelDBKeyValueStore) Close() error {
	if k.db != nil {
		return k.db.Close()
	}
	return nil
}

// NewLDBKeyValueStore construct a new LevelDB instance of a KV store
func NewLDBKeyValueStore(ldbPath string) KVStore {
	return &levelDBKeyValueStore{
		path: ldbPath,
	}
}
