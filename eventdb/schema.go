// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package eventdb

const eventTableSchema = `
create table if not exists event (
	blockNumber integer,
	blockTime integer,
	receiptIndex integer,
	eventIndex integer,
	caller blob(20),
	method text,
	address blob(20),
	name text,
	data text,
	primary key (blockNumber, receiptIndex, eventIndex)
);

CREATE INDEX if not exists blockTimeIndex on event(blockTime);
CREATE INDEX if not exists addressIndex on event(address);
CREATE INDEX if not exists nameIndex on event(name);
`
