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

package receipt

import (
	"crypto/rand"
	"encoding/json"
	"sync"
	"time"

	"github.com/hyperledger/firefly-loyaltyconnect/internal/conf"
	"github.com/hyperledger/firefly-loyaltyconnect/internal/errors"
	"github.com/hyperledger/firefly-loyaltyconnect/internal/kvstore"
	"github.com/hyperledger/firefly-loyaltyconnect/internal/utils"
	"github.com/oklog/ulid/v2"
	log "github.com/sirupsen/logrus"
)

const (
	// receipts are stored under time-ordered ULID keys, so iterating
	// backwards from the last key returns the newest first
	receiptKeyPrefix = "r/"
	// the request id index maps a request id to its ULID key
	indexKeyPrefix = "i/"
)

type levelDBReceipts struct {
	config  *conf.ReceiptsDBConf
	store   kvstore.KVStore
	mux     sync.Mutex
	entropy *ulid.MonotonicEntropy
	count   int
}

func newLevelDBReceipts(config *conf.ReceiptsDBConf) *levelDBReceipts {
	return &levelDBReceipts{
		config:  config,
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
}

func (l *levelDBReceipts) ValidateConf() error {
	if l.config.QueryLimit < 1 {
		l.config.QueryLimit = 100
	}
	return nil
}

func (l *levelDBReceipts) Init() error {
	store := kvstore.NewLDBKeyValueStore(l.config.LevelDB.Path)
	if err := store.Init(); err != nil {
		return errors.Errorf(errors.ReceiptStoreLevelDBConnect, err)
	}
	l.store = store

	itr := store.NewIteratorWithPrefix(receiptKeyPrefix)
	for valid := itr.First(); valid; valid = itr.Next() {
		l.count++
	}
	itr.Release()
	log.Infof("LevelDB receipt store opened at %s with %d receipts", l.config.LevelDB.Path, l.count)
	return nil
}

func (l *levelDBReceipts) newKey() string {
	return receiptKeyPrefix + ulid.MustNew(ulid.Timestamp(time.Now()), l.entropy).String()
}

// AddReceipt writes the receipt and its request id index in one batch,
// dropping the oldest receipts beyond maxDocs in the same batch
func (l *levelDBReceipts) AddReceipt(requestID string, receipt *map[string]interface{}) error {
	l.mux.Lock()
	defer l.mux.Unlock()

	indexKey := indexKeyPrefix + requestID
	if _, err := l.store.Get(indexKey); err == nil {
		return errors.Errorf(errors.ReceiptStoreDuplicate, requestID)
	}
	b, err := json.Marshal(receipt)
	if err != nil {
		return errors.Errorf(errors.ReceiptStoreSerializeResponse)
	}
	key := l.newKey()
	batch := &kvstore.Batch{}
	batch.Put(key, b)
	batch.Put(indexKey, []byte(key))

	pruned := 0
	if l.config.MaxDocs > 0 && l.count+1 > l.config.MaxDocs {
		pruned = l.pruneOldest(batch, l.count+1-l.config.MaxDocs)
	}
	if err := l.store.Write(batch); err != nil {
		return err
	}
	l.count += 1 - pruned
	return nil
}

func (l *levelDBReceipts) pruneOldest(batch *kvstore.Batch, n int) int {
	itr := l.store.NewIteratorWithPrefix(receiptKeyPrefix)
	defer itr.Release()
	pruned := 0
	for valid := itr.First(); valid && pruned < n; valid = itr.Next() {
		batch.Delete(itr.Key())
		if receipt, err := decodeReceipt(itr.Value()); err == nil {
			if requestID := utils.GetMapString(*receipt, "_id"); requestID != "" {
				batch.Delete(indexKeyPrefix + requestID)
			}
		}
		pruned++
	}
	log.Debugf("Pruning %d receipts over the limit of %d", pruned, l.config.MaxDocs)
	return pruned
}

func (l *levelDBReceipts) GetReceipt(requestID string) (*map[string]interface{}, error) {
	key, err := l.store.Get(indexKeyPrefix + requestID)
	if err == kvstore.ErrorNotFound {
		return nil, nil
	} else if err != nil {
		return nil, errors.Errorf(errors.LevelDBFailedRetriveOriginalKey, requestID, err)
	}
	b, err := l.store.Get(string(key))
	if err != nil {
		return nil, errors.Errorf(errors.LevelDBFailedRetriveGeneratedID, string(key), err)
	}
	return decodeReceipt(b)
}

func decodeReceipt(b []byte) (*map[string]interface{}, error) {
	result := make(map[string]interface{})
	if err := json.Unmarshal(b, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func matchesSigner(receipt map[string]interface{}, signer string) bool {
	return signer == "" || utils.GetMapString(utils.GetMapMap(receipt, "headers"), "signer") == signer
}

// keyBefore is true when the ULID key was generated at or before the time
func keyBefore(key string, sinceEpochMS int64) bool {
	id, err := ulid.ParseStrict(key[len(receiptKeyPrefix):])
	if err != nil {
		return false
	}
	return int64(id.Time()) <= sinceEpochMS
}

func (l *levelDBReceipts) GetReceipts(skip, limit int, ids []string, sinceEpochMS int64, signer string) (*[]map[string]interface{}, error) {
	if len(ids) > 0 {
		return l.getReceiptsByID(ids, sinceEpochMS, signer)
	}

	results := make([]map[string]interface{}, 0, limit)
	itr := l.store.NewIteratorWithPrefix(receiptKeyPrefix)
	defer itr.Release()

	matched := 0
	for valid := itr.Last(); valid; valid = itr.Prev() {
		if sinceEpochMS > 0 && keyBefore(itr.Key(), sinceEpochMS) {
			break
		}
		receipt, err := decodeReceipt(itr.Value())
		if err != nil {
			log.Warnf("Skipping unreadable receipt %s: %s", itr.Key(), err)
			continue
		}
		if !matchesSigner(*receipt, signer) {
			continue
		}
		matched++
		if matched <= skip {
			continue
		}
		results = append(results, *receipt)
		if limit > 0 && len(results) >= limit {
			break
		}
	}
	return &results, nil
}

func (l *levelDBReceipts) getReceiptsByID(ids []string, sinceEpochMS int64, signer string) (*[]map[string]interface{}, error) {
	results := make([]map[string]interface{}, 0, len(ids))
	for _, id := range ids {
		key, err := l.store.Get(indexKeyPrefix + id)
		if err != nil {
			continue
		}
		if sinceEpochMS > 0 && keyBefore(string(key), sinceEpochMS) {
			continue
		}
		b, err := l.store.Get(string(key))
		if err != nil {
			return nil, errors.Errorf(errors.LevelDBFailedRetriveGeneratedID, string(key), err)
		}
		receipt, err := decodeReceipt(b)
		if err != nil {
			return nil, err
		}
		if matchesSigner(*receipt, signer) {
			results = append(results, *receipt)
		}
	}
	return &results, nil
}

func (l *levelDBReceipts) Close() {
	if l.store != nil {
		_ = l.store.Close()
	}
}
