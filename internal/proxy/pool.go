// internal/proxy/pool.go
//
// Package proxy loads a file-backed pool of upstream proxies and hands out
// random picks to the HTTP session layer.
package proxy

import (
	"bufio"
	"fmt"
	"math/rand"
	"os"
	"strings"
	"sync"

	"github.com/valpere/shopwatch/internal/utils"
	"github.com/valpere/shopwatch/pkg/types"
)

// Pool is a random-pick proxy pool loaded from a newline-delimited file.
// Line grammar: "host:port" or "host:port:user:pass". Lines starting with
// '#' and malformed lines are skipped, not treated as load errors.
type Pool struct {
	mu      sync.RWMutex
	proxies []*types.Proxy
	logger  utils.Logger
}

// NewPool returns an empty pool.
func NewPool(logger utils.Logger) *Pool {
	if logger == nil {
		logger = utils.NewLogger()
	}
	return &Pool{logger: utils.NewComponentLogger(logger, "proxy-pool")}
}

// LoadFile parses every line of path into the pool, replacing its current
// contents. Returns the count of proxies loaded.
func (p *Pool) LoadFile(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, utils.WrapError(err, utils.ErrCodeInvalidConfig, fmt.Sprintf("opening proxy file %s", path))
	}
	defer f.Close()

	seen := map[string]bool{}
	var loaded []*types.Proxy
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if seen[line] {
			continue
		}
		seen[line] = true

		proxy, err := types.ParseProxyLine(line)
		if err != nil {
			return 0, utils.WrapError(err, utils.ErrCodeInvalidConfig, "parsing proxy line")
		}
		if proxy == nil {
			continue
		}
		loaded = append(loaded, proxy)
	}
	if err := scanner.Err(); err != nil {
		return 0, utils.WrapError(err, utils.ErrCodeInvalidConfig, "reading proxy file")
	}

	p.mu.Lock()
	p.proxies = loaded
	p.mu.Unlock()

	p.logger.Infof("loaded %d proxies from %s", len(loaded), path)
	return len(loaded), nil
}

// GetRandom returns a uniformly random proxy from the pool. Returns an
// ErrCodeLookupFailed error if the pool is empty.
func (p *Pool) GetRandom() (*types.Proxy, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if len(p.proxies) == 0 {
		return nil, utils.NewError(utils.ErrCodeLookupFailed,
			"a web proxy is required but was not found in the pool").Build()
	}
	return p.proxies[rand.Intn(len(p.proxies))], nil
}

// Len returns the number of proxies currently loaded.
func (p *Pool) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.proxies)
}
