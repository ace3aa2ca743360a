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
	"os"
	"path"
	"testing"

	"github.com/stretchr/testify/assert"
)

func newTestStore(t *testing.T) KVStore {
	dir, err := os.MkdirTemp("", "kvstore_test")
	assert.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })
	kv := NewLDBKeyValueStore(path.Join(dir, "db"))
	assert.NoError(t, kv.Init())
	t.Cleanup(func() { kv.Close() })
	return kv
}

func TestBatchPutGetDelete(t *testing.T) {
	assert := assert.New(t)
	kv := newTestStore(t)

	batch := &Batch{}
	batch.Put("k1", []byte("v1"))
	batch.Put("k2", []byte("v2"))
	assert.Equal(2, batch.Len())
	assert.NoError(kv.Write(batch))

	v, err := kv.Get("k1")
	assert.NoError(err)
	assert.Equal("v1", string(v))

	batch = &Batch{}
	batch.Delete("k1")
	batch.Put("k3", []byte("v3"))
	assert.NoError(kv.Write(batch))

	_, err = kv.Get("k1")
	assert.Equal(ErrorNotFound, err)
	v, err = kv.Get("k3")
	assert.NoError(err)
	assert.Equal("v3", string(v))
}

func TestIteratorWithPrefix(t *testing.T) {
	assert := assert.New(t)
	kv := newTestStore(t)

	batch := &Batch{}
	batch.Put("r:1", []byte("a"))
	batch.Put("r:2", []byte("b"))
	batch.Put("i:1", []byte("x"))
	assert.NoError(kv.Write(batch))

	it := kv.NewIteratorWithPrefix("r:")
	defer it.Release()
	var keys []string
	for ok := it.Last(); ok; ok = it.Prev() {
		keys = append(keys, it.Key())
	}
	assert.Equal([]string{"r:2", "r:1"}, keys)

	assert.True(it.First())
	assert.Equal("r:1", it.Key())
	assert.Equal("a", string(it.Value()))
	assert.True(it.Next())
	assert.False(it.Next())
}

func TestInitBadPath(t *testing.T) {
	assert := assert.New(t)
	dir, _ := os.MkdirTemp("", "kvstore_test")
	defer os.RemoveAll(dir)
	file := path.Join(dir, "afile")
	_ = os.WriteFile(file, []byte("not a dir"), 0644)
	kv := NewLDBKeyValueStore(path.Join(file, "db"))
	assert.Regexp("Failed to open DB", kv.Init())
	assert.NoError(kv.Close())
}
