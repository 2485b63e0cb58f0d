// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package eventdb indexes the events of sealed blocks into sqlite.
package eventdb

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/ethereum/go-ethereum/log"
	sqlite3 "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"

	"github.com/fuseio/fuse-consensus/chain"
	"github.com/fuseio/fuse-consensus/fuse"
)

var logger = log.New("pkg", "eventdb")

// EventDB manages all events.
type EventDB struct {
	path          string
	db            *sql.DB
	sqliteVersion string
}

// New opens an event db at path.
func New(path string) (*EventDB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	// :memory: databases are per connection
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(eventTableSchema); err != nil {
		db.Close()
		return nil, err
	}
	s, _, _ := sqlite3.Version()
	return &EventDB{
		path:          path,
		db:            db,
		sqliteVersion: s,
	}, nil
}

// NewMem creates a memory sqlite db.
func NewMem() (*EventDB, error) {
	return New(":memory:")
}

// Insert stores events. Events already present are replaced.
func (db *EventDB) Insert(events []*Event) error {
	if len(events) == 0 {
		return nil
	}
	tx, err := db.db.Begin()
	if err != nil {
		return err
	}
	for _, ev := range events {
		if _, err = tx.Exec("INSERT OR REPLACE INTO event(blockNumber, blockTime, receiptIndex, eventIndex, caller, method, address, name, data) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?);",
			ev.BlockNumber,
			ev.BlockTime,
			ev.ReceiptIndex,
			ev.Index,
			ev.Caller.Bytes(),
			ev.Method,
			ev.Address.Bytes(),
			ev.Name,
			string(ev.Data),
		); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// Filter returns the events matching filter.
func (db *EventDB) Filter(ctx context.Context, filter *Filter) ([]*Event, error) {
	if filter == nil {
		return db.query(ctx, "SELECT * FROM event ORDER BY blockNumber ASC, receiptIndex ASC, eventIndex ASC")
	}
	var args []any
	stmt := "SELECT * FROM event WHERE 1"
	if filter.Range != nil {
		condition := "blockNumber"
		if filter.Range.Unit == Time {
			condition = "blockTime"
		}
		args = append(args, filter.Range.From)
		stmt += " AND " + condition + " >= ?"
		if filter.Range.To >= filter.Range.From {
			args = append(args, filter.Range.To)
			stmt += " AND " + condition + " <= ?"
		}
	}
	if filter.Address != nil {
		args = append(args, filter.Address.Bytes())
		stmt += " AND address = ?"
	}
	if filter.Name != "" {
		args = append(args, filter.Name)
		stmt += " AND name = ?"
	}

	if filter.Order == DESC {
		stmt += " ORDER BY blockNumber DESC, receiptIndex DESC, eventIndex DESC"
	} else {
		stmt += " ORDER BY blockNumber ASC, receiptIndex ASC, eventIndex ASC"
	}

	if filter.Options != nil {
		stmt += " LIMIT ?, ?"
		args = append(args, filter.Options.Offset, filter.Options.Limit)
	}
	return db.query(ctx, stmt, args...)
}

func (db *EventDB) query(ctx context.Context, stmt string, args ...any) ([]*Event, error) {
	rows, err := db.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := []*Event{}
	for rows.Next() {
		var (
			ev      Event
			caller  []byte
			address []byte
			data    string
		)
		if err := rows.Scan(
			&ev.BlockNumber,
			&ev.BlockTime,
			&ev.ReceiptIndex,
			&ev.Index,
			&caller,
			&ev.Method,
			&address,
			&ev.Name,
			&data,
		); err != nil {
			return nil, err
		}
		ev.Caller = fuse.BytesToAddress(caller)
		ev.Address = fuse.BytesToAddress(address)
		ev.Data = json.RawMessage(data)
		events = append(events, &ev)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

// Path returns the db's path.
func (db *EventDB) Path() string {
	return db.path
}

// Close closes sqlite.
func (db *EventDB) Close() error {
	return db.db.Close()
}

// FromBlock flattens the events of every accepted receipt in ev.
func FromBlock(ev *chain.BlockEvent) ([]*Event, error) {
	var events []*Event
	for _, r := range ev.Receipts {
		if r.Reverted {
			continue
		}
		for i, e := range r.Events {
			data, err := json.Marshal(e.Data)
			if err != nil {
				return nil, errors.Wrapf(err, "encode event %s", e.Name)
			}
			events = append(events, &Event{
				BlockNumber:  ev.Head.Number,
				BlockTime:    ev.Head.Time,
				ReceiptIndex: uint32(r.Index),
				Index:        uint32(i),
				Caller:       r.Caller,
				Method:       r.Method,
				Address:      e.Address,
				Name:         e.Name,
				Data:         data,
			})
		}
	}
	return events, nil
}

// Index stores the events of every block sealed by c until ctx is done. Blocks are queued
// in memory while an insert is in progress, so indexing never holds up sealing.
func (db *EventDB) Index(ctx context.Context, c *chain.Chain) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	ch := make(chan *chain.BlockEvent, 64)
	sub := c.SubscribeBlocks(ch)
	defer sub.Unsubscribe()

	queue := make(chan *chain.BlockEvent)
	go relay(ctx, ch, queue)

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-sub.Err():
			return err
		case ev := <-queue:
			events, err := FromBlock(ev)
			if err != nil {
				return err
			}
			if err := db.Insert(events); err != nil {
				return errors.Wrapf(err, "index block %d", ev.Head.Number)
			}
			if len(events) > 0 {
				logger.Debug("events indexed", "block", ev.Head.Number, "count", len(events))
			}
		}
	}
}

// relay moves block events from in to out in order, buffering without bound so that in is
// always drained promptly.
func relay(ctx context.Context, in <-chan *chain.BlockEvent, out chan<- *chain.BlockEvent) {
	var backlog []*chain.BlockEvent
	for {
		var (
			next *chain.BlockEvent
			send chan<- *chain.BlockEvent
		)
		if len(backlog) > 0 {
			next, send = backlog[0], out
		}
		select {
		case <-ctx.Done():
			return
		case ev := <-in:
			backlog = append(backlog, ev)
			if len(backlog)%1000 == 0 {
				logger.Warn("event indexing falls behind", "queued", len(backlog))
			}
		case send <- next:
			backlog[0] = nil
			backlog = backlog[1:]
		}
	}
}
