// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package chain

import "github.com/fuseio/fuse-consensus/metrics"

var (
	metricTxCounter   = metrics.LazyLoadCounterVec("tx_count", []string{"method", "result"})
	metricBlockHeight = metrics.LazyLoadGauge("block_height")
	metricSeats       = metrics.LazyLoadGauge("validator_seats")
)
