// Package token resolves ticker symbols to tradable tokens: a local
// append-only mapping file first, then the remote token-search provider.
package token

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"sync"

	"snipebot/internal/domain"
)

const cacheHeader = "name,symbol,ca,chain"

// MappingCache is the file-backed token-mapping cache. Rows are loaded once
// and appended in memory and on disk together, so reads after a successful
// remote resolution see the new row without re-parsing the file.
//
// The file is append-only with no deduplication; lookups return the first
// row in file order. Single-writer discipline is assumed.
type MappingCache struct {
	path string

	mu   sync.RWMutex
	rows []row
}

type row struct {
	name       string
	symbol     string
	ca         string
	chainLabel string
}

// OpenMappingCache loads the cache file at path. A missing file is not an
// error; the cache starts empty and the file is created on first append.
func OpenMappingCache(path string) (*MappingCache, error) {
	c := &MappingCache{path: path}

	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return c, nil
	}
	if err != nil {
		return nil, fmt.Errorf("token: open mapping cache: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	first := true
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if first {
			first = false
			if strings.Contains(strings.ToLower(line), "symbol") {
				continue
			}
		}
		parts := strings.Split(line, ",")
		if len(parts) < 4 {
			continue
		}
		r := row{
			name:       strings.TrimSpace(parts[0]),
			symbol:     strings.TrimSpace(parts[1]),
			ca:         strings.TrimSpace(parts[2]),
			chainLabel: strings.TrimSpace(parts[3]),
		}
		if r.name == "" || r.symbol == "" || r.ca == "" || r.chainLabel == "" {
			continue
		}
		c.rows = append(c.rows, r)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("token: read mapping cache: %w", err)
	}
	return c, nil
}

// Lookup returns the first row whose symbol matches case-insensitively.
func (c *MappingCache) Lookup(symbol string) (domain.TokenMapping, bool) {
	target := strings.ToLower(strings.TrimSpace(symbol))

	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, r := range c.rows {
		if strings.ToLower(r.symbol) != target {
			continue
		}
		chain, ok := domain.NormalizeChain(r.chainLabel)
		if !ok {
			// Row points at a chain this bot cannot trade; treat as a miss
			// so extraction order moves on rather than erroring.
			continue
		}
		return domain.TokenMapping{
			Name:            r.name,
			Symbol:          r.symbol,
			ContractAddress: r.ca,
			Chain:           chain,
		}, true
	}
	return domain.TokenMapping{}, false
}

// Symbols returns the uppercase symbol column as a set, used as the bare-word
// extraction vocabulary.
func (c *MappingCache) Symbols() map[string]bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	vocab := make(map[string]bool, len(c.rows))
	for _, r := range c.rows {
		vocab[strings.ToUpper(r.symbol)] = true
	}
	return vocab
}

// Append writes one new row to the file and the in-memory view. The file gets
// a header when it does not exist yet. Repeated discovery of the same symbol
// produces repeated rows; the file doubles as an audit trail of resolutions.
func (c *MappingCache) Append(name, symbol, ca, chainLabel string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, statErr := os.Stat(c.path)
	f, err := os.OpenFile(c.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("token: open mapping cache for append: %w", err)
	}
	defer f.Close()

	if os.IsNotExist(statErr) {
		if _, err := fmt.Fprintln(f, cacheHeader); err != nil {
			return fmt.Errorf("token: write mapping cache header: %w", err)
		}
	}
	if _, err := fmt.Fprintf(f, "%s,%s,%s,%s\n", name, symbol, ca, chainLabel); err != nil {
		return fmt.Errorf("token: append mapping row: %w", err)
	}

	c.rows = append(c.rows, row{name: name, symbol: symbol, ca: ca, chainLabel: chainLabel})
	return nil
}
