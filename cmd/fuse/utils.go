// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/user"
	"path/filepath"
	"strings"
	"time"

	"github.com/beevik/ntp"
	"github.com/elastic/gosigar"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/fdlimit"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/log"
	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/fuseio/fuse-consensus/chain"
	"github.com/fuseio/fuse-consensus/eventdb"
	"github.com/fuseio/fuse-consensus/fuse"
	"github.com/fuseio/fuse-consensus/genesis"
	"github.com/fuseio/fuse-consensus/kv"
)

func initLogger(ctx *cli.Context) {
	lvl := log.FromLegacyLevel(ctx.Int(verbosityFlag.Name))
	useColor := (isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())) &&
		os.Getenv("TERM") != "dumb"
	log.SetDefault(log.NewLogger(log.NewTerminalHandlerWithLevel(os.Stderr, lvl, useColor)))
}

func homeDir() string {
	if home := os.Getenv("HOME"); home != "" {
		return home
	}
	if usr, err := user.Current(); err == nil {
		return usr.HomeDir
	}
	return ""
}

func defaultDataDir() string {
	if home := homeDir(); home != "" {
		return filepath.Join(home, ".fuse-consensus")
	}
	return ""
}

func selectGenesis(ctx *cli.Context) (*genesis.Genesis, error) {
	path := ctx.String(genesisFlag.Name)
	if path == "" {
		return genesis.NewDevnet(), nil
	}
	cfg, err := genesis.LoadConfig(path)
	if err != nil {
		return nil, errors.Wrap(err, "load genesis config")
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return genesis.New(name, cfg), nil
}

func makeInstanceDir(ctx *cli.Context, gene *genesis.Genesis) (string, error) {
	dataDir := ctx.String(dataDirFlag.Name)
	if dataDir == "" {
		return "", errors.Errorf("unable to infer default data dir, use -%s to specify", dataDirFlag.Name)
	}
	instanceDir := filepath.Join(dataDir, gene.Name())
	if err := os.MkdirAll(instanceDir, 0o700); err != nil {
		return "", errors.Wrapf(err, "create data dir [%v]", instanceDir)
	}
	return instanceDir, nil
}

func openMainDB(engine, dir string, cacheMB int) (kv.Store, error) {
	switch engine {
	case "leveldb":
		path := filepath.Join(dir, "main.db")
		db, err := kv.NewLevelDB(path, kv.Options{
			CacheSize:              cacheMB / 2,
			OpenFilesCacheCapacity: suggestFDCache(),
		})
		if err != nil {
			return nil, errors.Wrapf(err, "open chain database [%v]", path)
		}
		return db, nil
	case "bolt":
		path := filepath.Join(dir, "main.bolt")
		db, err := kv.NewBoltDB(path)
		if err != nil {
			return nil, errors.Wrapf(err, "open chain database [%v]", path)
		}
		return db, nil
	default:
		return nil, errors.Errorf("unsupported db engine %q", engine)
	}
}

func openEventDB(dir string) (*eventdb.EventDB, error) {
	path := filepath.Join(dir, "events.db")
	db, err := eventdb.New(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open event database [%v]", path)
	}
	return db, nil
}

func normalizeCacheSize(sizeMB int) int {
	if sizeMB < 128 {
		sizeMB = 128
	}

	var mem gosigar.Mem
	if err := mem.Get(); err != nil {
		log.Warn("failed to get total mem:", "err", err)
	} else {
		total := int(mem.Total / 1024 / 1024)
		// limit to not less than total/2 and up to total-2GB
		limitMB := max(total-2048, total/2)
		if sizeMB > limitMB {
			sizeMB = limitMB
			log.Warn("cache size(MB) limited", "limit", limitMB)
		}
	}
	return sizeMB
}

func suggestFDCache() int {
	limit, err := fdlimit.Current()
	if err != nil {
		log.Warn("unable to get fdlimit", "err", err)
		return 500
	}
	if limit <= 1024 {
		log.Warn("low fd limit, increase it if possible", "limit", limit)
	}
	return min(limit/2, 5120)
}

func parseValidatorKey(hexKey string) (*ecdsa.PrivateKey, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(hexKey), "0x"))
	if err != nil {
		return nil, errors.Wrap(err, "parse validator key")
	}
	return key, nil
}

// loadValidator resolves the address the engine announces for. On the devnet the first dev
// account is used when no key is given.
func loadValidator(ctx *cli.Context, gene *genesis.Genesis) (*fuse.Address, error) {
	var (
		key *ecdsa.PrivateKey
		err error
	)
	switch {
	case ctx.IsSet(validatorKeyFlag.Name):
		key, err = parseValidatorKey(ctx.String(validatorKeyFlag.Name))
	case ctx.IsSet(validatorKeyFileFlag.Name):
		var data []byte
		if data, err = os.ReadFile(ctx.String(validatorKeyFileFlag.Name)); err != nil {
			return nil, errors.Wrap(err, "read validator key file")
		}
		key, err = parseValidatorKey(string(data))
	case gene.Name() == "devnet":
		key = genesis.DevAccounts()[0].PrivateKey
	default:
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	addr := fuse.Address(crypto.PubkeyToAddress(key.PublicKey))
	return &addr, nil
}

func serveHTTP(ctx context.Context, addr string, handler http.Handler) (string, func() error, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return "", nil, errors.Wrapf(err, "listen addr [%v]", addr)
	}
	srv := &http.Server{Handler: handler, ReadHeaderTimeout: time.Second * 10}
	run := func() error {
		go func() {
			<-ctx.Done()
			srv.Close()
		}()
		if err := srv.Serve(listener); err != http.ErrServerClosed {
			return err
		}
		return nil
	}
	return "http://" + listener.Addr().String() + "/", run, nil
}

func checkClockOffset(interval uint64) {
	resp, err := ntp.Query("pool.ntp.org")
	if err != nil {
		log.Debug("failed to access NTP", "err", err)
		return
	}
	if resp.ClockOffset > time.Duration(interval)*time.Second/2 {
		log.Warn("clock offset detected", "offset", common.PrettyDuration(resp.ClockOffset))
	}
}

// clientName identifies this build, e.g. Fuse/1.0.0-abcdef-dev.
func clientName() string {
	return fmt.Sprintf("Fuse/%s", fullVersion())
}

func printStartupMessage(gene *genesis.Genesis, head *chain.Head, validator *fuse.Address, dataDir, apiURL string) {
	validatorStr := "none"
	if validator != nil {
		validatorStr = validator.String()
	}
	fmt.Printf(`Starting %v
    Network      [ %v ]
    Best block   [ #%v %v ]
    Registry     [ %v ]
    Validator    [ %v ]
    Instance dir [ %v ]
    API portal   [ %v ]
`,
		clientName(),
		gene.Name(),
		head.Number, time.Unix(int64(head.Time), 0),
		gene.Addresses.Registry,
		validatorStr,
		dataDir,
		apiURL)
}
