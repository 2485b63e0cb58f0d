// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package subscriptions

import (
	"net/http"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"github.com/fuseio/fuse-consensus/api/blocks"
	"github.com/fuseio/fuse-consensus/api/utils"
	"github.com/fuseio/fuse-consensus/chain"
	"github.com/fuseio/fuse-consensus/eventdb"
	"github.com/fuseio/fuse-consensus/fuse"
)

var (
	logger    = log.New("pkg", "subscriptions")
	errLagged = errors.New("subscriber fell behind")
)

const (
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 7) / 10
	writeWait  = 10 * time.Second
)

// Subscriptions streams sealed blocks and their events over websocket.
type Subscriptions struct {
	blocks   *dispatcher
	upgrader *websocket.Upgrader
	done     chan struct{}
	wg       sync.WaitGroup
}

// reader turns a sealed block into the messages of one subscription.
type reader func(ev *chain.BlockEvent) ([]any, error)

func New(c *chain.Chain, allowedOrigins []string) *Subscriptions {
	s := &Subscriptions{
		blocks: newDispatcher(),
		upgrader: &websocket.Upgrader{
			EnableCompression: true,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				for _, allowed := range allowedOrigins {
					if allowed == origin || allowed == "*" {
						return true
					}
				}
				return false
			},
		},
		done: make(chan struct{}),
	}

	ch := make(chan *chain.BlockEvent, listenerBuffer)
	sub := c.SubscribeBlocks(ch)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.blocks.loop(ch, sub, s.done)
	}()
	return s
}

func blockReader(ev *chain.BlockEvent) ([]any, error) {
	return []any{blocks.FromHead(ev.Head)}, nil
}

func eventReader(address *fuse.Address, name string) reader {
	return func(ev *chain.BlockEvent) ([]any, error) {
		events, err := eventdb.FromBlock(ev)
		if err != nil {
			return nil, err
		}
		var msgs []any
		for _, e := range events {
			if address != nil && e.Address != *address {
				continue
			}
			if name != "" && e.Name != name {
				continue
			}
			msgs = append(msgs, e)
		}
		return msgs, nil
	}
}

func (s *Subscriptions) handleSubject(w http.ResponseWriter, req *http.Request) error {
	var read reader
	switch subject := mux.Vars(req)["subject"]; subject {
	case "block":
		read = blockReader
	case "event":
		var address *fuse.Address
		if str := req.URL.Query().Get("address"); str != "" {
			addr, err := fuse.ParseAddress(str)
			if err != nil {
				return utils.BadRequest(errors.WithMessage(err, "address"))
			}
			address = addr
		}
		read = eventReader(address, req.URL.Query().Get("name"))
	default:
		return utils.NotFound(errors.Errorf("unsupported subject %q", subject))
	}

	// subscribe before the handshake completes, so no block sealed after it is missed
	lsn := s.blocks.subscribe()
	defer s.blocks.unsubscribe(lsn)

	conn, err := s.upgrader.Upgrade(w, req, nil)
	if err != nil {
		// the upgrader has responded
		logger.Debug("upgrade failed", "err", err)
		return nil
	}
	defer conn.Close()

	s.wg.Add(1)
	defer s.wg.Done()

	if err := s.pipe(conn, lsn, read); err != nil {
		logger.Debug("subscription closed", "err", err)
	}
	return nil
}

func (s *Subscriptions) pipe(conn *websocket.Conn, lsn *listener, read reader) error {
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server closing"),
				time.Now().Add(writeWait))
		case <-closed:
			return nil
		case <-lsn.lagged:
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "subscriber too slow"),
				time.Now().Add(writeWait))
			return errLagged
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return err
			}
		case ev := <-lsn.ch:
			msgs, err := read(ev)
			if err != nil {
				return err
			}
			for _, msg := range msgs {
				conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteJSON(msg); err != nil {
					return err
				}
			}
		}
	}
}

// Close ends every open subscription and waits for them.
func (s *Subscriptions) Close() {
	close(s.done)
	s.wg.Wait()
}

func (s *Subscriptions) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()
	sub.Path("/{subject}").Methods(http.MethodGet).HandlerFunc(utils.WrapHandlerFunc(s.handleSubject))
}
