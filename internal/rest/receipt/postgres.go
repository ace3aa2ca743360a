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
	"database/sql"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/hyperledger/firefly-loyaltyconnect/internal/conf"
	"github.com/hyperledger/firefly-loyaltyconnect/internal/errors"
	"github.com/hyperledger/firefly-loyaltyconnect/internal/utils"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	log "github.com/sirupsen/logrus"
)

const defaultPostgresTable = "receipts"

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// SQLDatabase is the subset of sqlx that we use, allowing stubbing
type SQLDatabase interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
	Select(dest interface{}, query string, args ...interface{}) error
	Get(dest interface{}, query string, args ...interface{}) error
	Close() error
}

type sqlConnector func(driverName, dsn string) (SQLDatabase, error)

func sqlxConnect(driverName, dsn string) (SQLDatabase, error) {
	db, err := sqlx.Connect(driverName, dsn)
	if err != nil {
		return nil, err
	}
	return db, nil
}

type receiptRow struct {
	ID         string `db:"id"`
	Signer     string `db:"signer"`
	ReceivedAt int64  `db:"received_at"`
	Body       []byte `db:"body"`
}

type postgresReceipts struct {
	config  *conf.ReceiptsDBConf
	connect sqlConnector
	db      SQLDatabase
	table   string
}

func newPostgresReceipts(config *conf.ReceiptsDBConf) *postgresReceipts {
	return &postgresReceipts{
		config:  config,
		connect: sqlxConnect,
	}
}

func (p *postgresReceipts) ValidateConf() error {
	p.table = p.config.PostgreSQL.Table
	if p.table == "" {
		p.table = defaultPostgresTable
	}
	if !validTableName.MatchString(p.table) {
		return errors.Errorf(errors.ReceiptStorePostgresBadTable, p.table)
	}
	if p.config.QueryLimit < 1 {
		p.config.QueryLimit = 100
	}
	return nil
}

func (p *postgresReceipts) migrations() []string {
	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id          TEXT PRIMARY KEY,
			signer      TEXT NOT NULL DEFAULT '',
			received_at BIGINT NOT NULL,
			body        JSONB NOT NULL
		)`, p.table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %[1]s_received_at ON %[1]s (received_at)`, p.table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %[1]s_signer ON %[1]s (signer)`, p.table),
	}
}

func (p *postgresReceipts) Init() error {
	if err := p.ValidateConf(); err != nil {
		return err
	}
	db, err := p.connect("postgres", p.config.PostgreSQL.DSN)
	if err != nil {
		return errors.Errorf(errors.ReceiptStorePostgresConnect, err)
	}
	for _, migration := range p.migrations() {
		if _, err := db.Exec(migration); err != nil {
			db.Close()
			return errors.Errorf(errors.ReceiptStorePostgresMigrate, err)
		}
	}
	p.db = db
	log.Infof("Connected to PostgreSQL receipt table %s", p.table)
	return nil
}

func (p *postgresReceipts) AddReceipt(requestID string, receipt *map[string]interface{}) error {
	body, err := json.Marshal(receipt)
	if err != nil {
		return errors.Errorf(errors.ReceiptStoreSerializeResponse)
	}
	receivedAt, _ := (*receipt)["receivedAt"].(int64)
	signer := utils.GetMapString(utils.GetMapMap(*receipt, "headers"), "signer")
	if _, err = p.db.Exec(
		fmt.Sprintf(`INSERT INTO %s (id, signer, received_at, body) VALUES ($1, $2, $3, $4)`, p.table),
		requestID, signer, receivedAt, body,
	); err != nil {
		return err
	}
	if p.config.MaxDocs > 0 {
		if _, err := p.db.Exec(
			fmt.Sprintf(`DELETE FROM %[1]s WHERE id IN (SELECT id FROM %[1]s ORDER BY received_at DESC OFFSET $1)`, p.table),
			p.config.MaxDocs,
		); err != nil {
			log.Warnf("Failed to trim receipts to %d: %s", p.config.MaxDocs, err)
		}
	}
	return nil
}

func (p *postgresReceipts) GetReceipts(skip, limit int, ids []string, sinceEpochMS int64, signer string) (*[]map[string]interface{}, error) {
	var where []string
	var args []interface{}
	addFilter := func(clause string, arg interface{}) {
		args = append(args, arg)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}
	if len(ids) > 0 {
		addFilter("id = ANY($%d)", pq.Array(ids))
	}
	if sinceEpochMS > 0 {
		addFilter("received_at > $%d", sinceEpochMS)
	}
	if signer != "" {
		addFilter("signer = $%d", signer)
	}

	query := fmt.Sprintf("SELECT id, signer, received_at, body FROM %s", p.table)
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY received_at DESC"
	if limit > 0 {
		args = append(args, limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if skip > 0 {
		args = append(args, skip)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	var rows []receiptRow
	if err := p.db.Select(&rows, query, args...); err != nil {
		return nil, err
	}
	results := make([]map[string]interface{}, 0, len(rows))
	for _, row := range rows {
		receipt, err := decodeReceipt(row.Body)
		if err != nil {
			return nil, err
		}
		results = append(results, *receipt)
	}
	return &results, nil
}

func (p *postgresReceipts) GetReceipt(requestID string) (*map[string]interface{}, error) {
	var row receiptRow
	err := p.db.Get(&row, fmt.Sprintf("SELECT id, signer, received_at, body FROM %s WHERE id = $1", p.table), requestID)
	if err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	return decodeReceipt(row.Body)
}

func (p *postgresReceipts) Close() {
	if p.db != nil {
		p.db.Close()
	}
}
