package token

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"snipebot/internal/domain"
)

func writeMappingFile(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "token_mapping.csv")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644))
	return path
}

func TestOpenMappingCache_MissingFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nope.csv")
	c, err := OpenMappingCache(path)
	require.NoError(t, err)

	_, found := c.Lookup("PEPE")
	assert.False(t, found)
	assert.Empty(t, c.Symbols())
}

func TestMappingCache_LookupIsCaseInsensitive(t *testing.T) {
	path := writeMappingFile(t,
		"name,symbol,ca,chain",
		"Pepe,PEPE,0x25d887ce7a35172c62febfd67a1856f20faebb00,bsc",
	)
	c, err := OpenMappingCache(path)
	require.NoError(t, err)

	for _, q := range []string{"PEPE", "pepe", " Pepe "} {
		m, found := c.Lookup(q)
		require.True(t, found, "query %q", q)
		assert.Equal(t, "0x25d887ce7a35172c62febfd67a1856f20faebb00", m.ContractAddress)
		assert.Equal(t, domain.ChainBSC, m.Chain)
	}
}

func TestMappingCache_FirstRowWins(t *testing.T) {
	path := writeMappingFile(t,
		"name,symbol,ca,chain",
		"Pepe,PEPE,0x1111111111111111111111111111111111111111,bsc",
		"Pepe2,PEPE,0x2222222222222222222222222222222222222222,bsc",
	)
	c, err := OpenMappingCache(path)
	require.NoError(t, err)

	m, found := c.Lookup("PEPE")
	require.True(t, found)
	assert.Equal(t, "0x1111111111111111111111111111111111111111", m.ContractAddress)
}

func TestMappingCache_UnknownChainRowIsAMiss(t *testing.T) {
	path := writeMappingFile(t,
		"name,symbol,ca,chain",
		"Weird,WEIRD,0x3333333333333333333333333333333333333333,tron",
		"Weird,WEIRD,0x4444444444444444444444444444444444444444,bsc",
	)
	c, err := OpenMappingCache(path)
	require.NoError(t, err)

	// The tron row cannot be traded here; the later bsc row still resolves.
	m, found := c.Lookup("WEIRD")
	require.True(t, found)
	assert.Equal(t, "0x4444444444444444444444444444444444444444", m.ContractAddress)
}

func TestMappingCache_SkipsMalformedLines(t *testing.T) {
	path := writeMappingFile(t,
		"name,symbol,ca,chain",
		"",
		"just,three,columns",
		"Bonk,BONK,DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263,solana",
		",,empty-name,bsc",
	)
	c, err := OpenMappingCache(path)
	require.NoError(t, err)

	assert.Equal(t, map[string]bool{"BONK": true}, c.Symbols())
	m, found := c.Lookup("bonk")
	require.True(t, found)
	assert.Equal(t, domain.ChainSolana, m.Chain)
}

func TestMappingCache_HeaderOnlyWhenFirstLineNamesSymbol(t *testing.T) {
	// A data file with no header must not lose its first row.
	path := writeMappingFile(t,
		"Pepe,PEPE,0x25d887ce7a35172c62febfd67a1856f20faebb00,bsc",
	)
	c, err := OpenMappingCache(path)
	require.NoError(t, err)

	_, found := c.Lookup("PEPE")
	assert.True(t, found)
}

func TestMappingCache_SymbolsAreUppercased(t *testing.T) {
	path := writeMappingFile(t,
		"name,symbol,ca,chain",
		"Doge,doge,0x5555555555555555555555555555555555555555,bsc",
		"Bonk,BONK,DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263,sol",
	)
	c, err := OpenMappingCache(path)
	require.NoError(t, err)

	assert.Equal(t, map[string]bool{"DOGE": true, "BONK": true}, c.Symbols())
}

func TestMappingCache_AppendCreatesFileWithHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token_mapping.csv")
	c, err := OpenMappingCache(path)
	require.NoError(t, err)

	require.NoError(t, c.Append("Pepe", "PEPE", "0x25d887ce7a35172c62febfd67a1856f20faebb00", "bsc"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "name,symbol,ca,chain", lines[0])
	assert.Equal(t, "Pepe,PEPE,0x25d887ce7a35172c62febfd67a1856f20faebb00,bsc", lines[1])

	// The in-memory view sees the row without reopening the file.
	m, found := c.Lookup("pepe")
	require.True(t, found)
	assert.Equal(t, domain.ChainBSC, m.Chain)
}

func TestMappingCache_AppendToExistingFileSkipsHeader(t *testing.T) {
	path := writeMappingFile(t,
		"name,symbol,ca,chain",
		"Pepe,PEPE,0x1111111111111111111111111111111111111111,bsc",
	)
	c, err := OpenMappingCache(path)
	require.NoError(t, err)

	require.NoError(t, c.Append("Bonk", "BONK", "DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263", "solana"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Bonk,BONK,DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263,solana", lines[2])

	// Append never deduplicates; a second discovery adds a second row.
	require.NoError(t, c.Append("Bonk", "BONK", "DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263", "solana"))
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(string(data)), "\n"), 4)
}
