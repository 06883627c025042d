// internal/shop/producturls.go
//
// Loads the plain-text product-URL list ReconcileFromProductURLs consumes.
// Grounded on shop/productsUrlsDao.py's three-step pipeline: strip
// whitespace, drop '#'-prefixed and blank lines, then keep only lines
// starting with "http" - everything else is dropped with a warning rather
// than failing the whole load.
package shop

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/valpere/shopwatch/internal/utils"
)

// LoadProductURLsFile reads path and returns its valid, de-duplicated URL
// set in file order. A missing or unreadable file is a hard error: unlike
// the proxy/UA pools, an empty product-URL list is a valid but deliberate
// input (see ReconcileFromProductURLs's empty-set behavior), so the
// scheduler must be able to tell "file absent" apart from "file empty".
func LoadProductURLsFile(path string, logger utils.Logger) ([]string, error) {
	if logger == nil {
		logger = utils.NewLogger()
	}
	logger = utils.NewComponentLogger(logger, "product-urls")

	f, err := os.Open(path)
	if err != nil {
		return nil, utils.WrapError(err, utils.ErrCodeInvalidConfig, fmt.Sprintf("opening product URL file %s", path))
	}
	defer f.Close()

	seen := map[string]bool{}
	var urls []string

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !strings.HasPrefix(line, "http") {
			logger.Warnf("invalid record, no http part detected: %s", line)
			continue
		}
		if seen[line] {
			continue
		}
		seen[line] = true
		urls = append(urls, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, utils.WrapError(err, utils.ErrCodeInvalidConfig, "reading product URL file")
	}

	return urls, nil
}

// SaveProductURLsFile writes urls to path, one per line, the inverse of
// LoadProductURLsFile - together the two give the load-dedupe-save-load
// round trip idempotence.
func SaveProductURLsFile(path string, urls []string) error {
	content := strings.Join(urls, "\n")
	if len(urls) > 0 {
		content += "\n"
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return utils.WrapError(err, utils.ErrCodeInvalidConfig, fmt.Sprintf("writing product URL file %s", path))
	}
	return nil
}
