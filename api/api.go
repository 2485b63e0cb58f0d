// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/fuseio/fuse-consensus/api/accounts"
	"github.com/fuseio/fuse-consensus/api/ballots"
	"github.com/fuseio/fuse-consensus/api/blocks"
	"github.com/fuseio/fuse-consensus/api/events"
	"github.com/fuseio/fuse-consensus/api/registry"
	"github.com/fuseio/fuse-consensus/api/subscriptions"
	"github.com/fuseio/fuse-consensus/api/transactions"
	"github.com/fuseio/fuse-consensus/api/validators"
	"github.com/fuseio/fuse-consensus/chain"
	"github.com/fuseio/fuse-consensus/eventdb"
	"github.com/fuseio/fuse-consensus/fuse"
)

var logger = log.New("pkg", "api")

type Options struct {
	AllowedOrigins       string
	EventsLimit          uint64
	EnableMetrics        bool
	EnableReqLogger      bool
	SlowQueriesThreshold time.Duration
}

// New return api router and a closer of the open subscriptions. Components are found
// through the registry at registryAddr. The events route is mounted when eventDB is not nil.
func New(c *chain.Chain, eventDB *eventdb.EventDB, registryAddr fuse.Address, opts Options) (http.Handler, func()) {
	origins := strings.Split(strings.TrimSpace(opts.AllowedOrigins), ",")
	for i, o := range origins {
		origins[i] = strings.ToLower(strings.TrimSpace(o))
	}

	router := mux.NewRouter()

	accounts.New(c, registryAddr).
		Mount(router, "/accounts")
	blocks.New(c).
		Mount(router, "/blocks")
	ballots.New(c, registryAddr).
		Mount(router, "/ballots")
	transactions.New(c).
		Mount(router, "/transactions")
	validators.New(c, registryAddr).
		Mount(router)
	registry.New(c, registryAddr).
		Mount(router)
	if eventDB != nil {
		limit := opts.EventsLimit
		if limit == 0 {
			limit = 1000
		}
		events.New(eventDB, limit).
			Mount(router, "/events")
	}
	subs := subscriptions.New(c, origins)
	subs.Mount(router, "/subscriptions")

	if opts.EnableMetrics {
		router.Use(metricsMiddleware)
	}

	handler := handlers.CompressHandler(router)
	handler = handlers.CORS(
		handlers.AllowedOrigins(origins),
		handlers.AllowedHeaders([]string{"content-type"}),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
	)(handler)

	if opts.EnableReqLogger || opts.SlowQueriesThreshold > 0 {
		handler = requestLogger(logger, opts.EnableReqLogger, opts.SlowQueriesThreshold)(handler)
	}
	return handler, subs.Close // subscriptions handles hijacked conns, which need to be closed
}
