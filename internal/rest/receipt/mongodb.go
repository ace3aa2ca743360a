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
	"time"

	"github.com/globalsign/mgo"
	"github.com/globalsign/mgo/bson"
	"github.com/hyperledger/firefly-loyaltyconnect/internal/conf"
	"github.com/hyperledger/firefly-loyaltyconnect/internal/errors"
	"github.com/hyperledger/firefly-loyaltyconnect/internal/utils"
	log "github.com/sirupsen/logrus"
)

const (
	mongoConnectTimeout = 10 * 1000
)

// receipt listings sort newest first, and the REST layer scopes them to
// the calling card id when one is given
var mongoReceiptIndexes = []mgo.Index{
	{
		Key:        []string{"receivedAt"},
		Background: true,
		Sparse:     true,
	},
	{
		Key:        []string{"headers.signer", "-receivedAt"},
		Background: true,
	},
}

// MongoDatabase is a subset of mgo that we use, allowing stubbing.
type MongoDatabase interface {
	Connect(url string, timeout time.Duration) error
	GetCollection(database string, collection string) MongoCollection
	Close()
}

// MongoCollection is the subset of mgo that we use, allowing stubbing
type MongoCollection interface {
	Insert(...interface{}) error
	Create(info *mgo.CollectionInfo) error
	EnsureIndex(index mgo.Index) error
	Find(query interface{}) MongoQuery
}

// MongoQuery is the subset of mgo that we use, allowing stubbing
type MongoQuery interface {
	Limit(n int) *mgo.Query
	Skip(n int) *mgo.Query
	Sort(fields ...string) *mgo.Query
	All(result interface{}) error
	One(result interface{}) error
}

type mgoWrapper struct {
	session *mgo.Session
}

func (m *mgoWrapper) Connect(url string, timeout time.Duration) (err error) {
	m.session, err = mgo.DialWithTimeout(url, timeout)
	return
}

func (m *mgoWrapper) Close() {
	if m.session != nil {
		m.session.Close()
	}
}

func (m *mgoWrapper) GetCollection(database string, collection string) MongoCollection {
	return &collWrapper{coll: m.session.DB(database).C(collection)}
}

type collWrapper struct {
	coll *mgo.Collection
}

func (m *collWrapper) Insert(docs ...interface{}) error {
	return m.coll.Insert(docs...)
}

func (m *collWrapper) Create(info *mgo.CollectionInfo) error {
	return m.coll.Create(info)
}

func (m *collWrapper) EnsureIndex(index mgo.Index) error {
	return m.coll.EnsureIndex(index)
}

func (m *collWrapper) Find(query interface{}) MongoQuery {
	return m.coll.Find(query)
}

type mongoReceipts struct {
	config     *conf.ReceiptsDBConf
	mgo        MongoDatabase
	collection MongoCollection
}

func newMongoReceipts(config *conf.ReceiptsDBConf) *mongoReceipts {
	return &mongoReceipts{
		config: config,
		mgo:    &mgoWrapper{},
	}
}

func (m *mongoReceipts) ValidateConf() (err error) {
	if !utils.AllOrNoneReqd(m.config.MongoDB.URL, m.config.MongoDB.Database, m.config.MongoDB.Collection) {
		err = errors.Errorf(errors.ConfigRESTGatewayRequiredReceiptStore)
		return
	}
	if m.config.QueryLimit < 1 {
		m.config.QueryLimit = 100
	}
	return
}

func (m *mongoReceipts) Init() (err error) {
	if m.config.MongoDB.ConnectTimeoutMS <= 0 {
		m.config.MongoDB.ConnectTimeoutMS = mongoConnectTimeout
	}
	err = m.mgo.Connect(m.config.MongoDB.URL, time.Duration(m.config.MongoDB.ConnectTimeoutMS)*time.Millisecond)
	if err != nil {
		err = errors.Errorf(errors.ReceiptStoreMongoDBConnect, err)
		return
	}
	m.collection = m.mgo.GetCollection(m.config.MongoDB.Database, m.config.MongoDB.Collection)
	if collErr := m.collection.Create(&mgo.CollectionInfo{
		Capped:  (m.config.MaxDocs > 0),
		MaxDocs: m.config.MaxDocs,
	}); collErr != nil {
		log.Infof("MongoDB collection exists: %s", collErr)
	}

	for _, index := range mongoReceiptIndexes {
		if err = m.collection.EnsureIndex(index); err != nil {
			err = errors.Errorf(errors.ReceiptStoreMongoDBIndex, err)
			return
		}
	}

	log.Infof("Connected to MongoDB on %s DB=%s Collection=%s", m.config.MongoDB.URL, m.config.MongoDB.Database, m.config.MongoDB.Collection)
	return
}

// AddReceipt inserts keyed by _id, so a duplicate request id fails
func (m *mongoReceipts) AddReceipt(requestID string, receipt *map[string]interface{}) error {
	err := m.collection.Insert(*receipt)
	if mgo.IsDup(err) {
		return errors.Errorf(errors.ReceiptStoreDuplicate, requestID)
	}
	return err
}

// GetReceipts returns recent receipts with skip & limit, optionally for one signer
func (m *mongoReceipts) GetReceipts(skip, limit int, ids []string, sinceEpochMS int64, signer string) (*[]map[string]interface{}, error) {
	filter := bson.M{}
	if len(ids) > 0 {
		filter["_id"] = bson.M{
			"$in": ids,
		}
	}
	if sinceEpochMS > 0 {
		filter["receivedAt"] = bson.M{
			"$gt": sinceEpochMS,
		}
	}
	if signer != "" {
		filter["headers.signer"] = signer
	}
	query := m.collection.Find(filter)
	query.Sort("-receivedAt")
	if limit > 0 {
		query.Limit(limit)
	}
	if skip > 0 {
		query.Skip(skip)
	}
	results := make([]map[string]interface{}, 0, limit)
	if err := query.All(&results); err != nil && err != mgo.ErrNotFound {
		return nil, err
	}
	return &results, nil
}

func (m *mongoReceipts) GetReceipt(requestID string) (*map[string]interface{}, error) {
	query := m.collection.Find(bson.M{"_id": requestID})
	result := make(map[string]interface{})
	err := query.One(&result)
	switch {
	case err == mgo.ErrNotFound:
		return nil, nil
	case err != nil:
		return nil, err
	default:
		return &result, nil
	}
}

func (m *mongoReceipts) Close() {
	m.mgo.Close()
}
