// internal/useragent/pool.go
//
// Package useragent loads a file-backed pool of user-agent strings and
// hands out random picks to the HTTP session layer, mirroring the shape of
// internal/proxy's pool.
package useragent

import (
	"bufio"
	"math/rand"
	"os"
	"strings"
	"sync"

	"github.com/valpere/shopwatch/internal/utils"
)

// defaultAgents is used when no pool file is configured, grounded on the
// teacher's own hard-coded fallback list in internal/scraper/engine.go.
var defaultAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Safari/605.1.15",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:121.0) Gecko/20100101 Firefox/121.0",
}

// Pool is a random-pick user-agent pool, optionally loaded from a
// newline-delimited file. Comment lines ('#') and blank lines are skipped.
type Pool struct {
	mu     sync.RWMutex
	agents []string
	logger utils.Logger
}

// NewPool returns a pool seeded with the built-in default agents.
func NewPool(logger utils.Logger) *Pool {
	if logger == nil {
		logger = utils.NewLogger()
	}
	agents := make([]string, len(defaultAgents))
	copy(agents, defaultAgents)
	return &Pool{agents: agents, logger: utils.NewComponentLogger(logger, "useragent-pool")}
}

// LoadFile replaces the pool's contents with the agents found in path.
func (p *Pool) LoadFile(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, utils.WrapError(err, utils.ErrCodeInvalidConfig, "opening user-agent file")
	}
	defer f.Close()

	seen := map[string]bool{}
	var loaded []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if seen[line] {
			continue
		}
		seen[line] = true
		loaded = append(loaded, line)
	}
	if err := scanner.Err(); err != nil {
		return 0, utils.WrapError(err, utils.ErrCodeInvalidConfig, "reading user-agent file")
	}

	p.mu.Lock()
	p.agents = loaded
	p.mu.Unlock()

	p.logger.Infof("loaded %d user agents from %s", len(loaded), path)
	return len(loaded), nil
}

// GetRandom returns a uniformly random user-agent string. Returns an
// ErrCodeLookupFailed error if the pool is empty.
func (p *Pool) GetRandom() (string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if len(p.agents) == 0 {
		return "", utils.NewError(utils.ErrCodeLookupFailed,
			"a user agent is required but was not found in the pool").Build()
	}
	return p.agents[rand.Intn(len(p.agents))], nil
}

// Len returns the number of agents currently loaded.
func (p *Pool) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.agents)
}
