// Package extract implements the signal extractor: deterministic detection
// of contract addresses and ticker symbols in free-form social text. All
// functions are pure; precedence and tie-break rules are fixed.
package extract

import (
	"regexp"
	"strings"
	"unicode"

	"snipebot/internal/domain"
)

var (
	evmAddrRe = regexp.MustCompile(`\b(0x[a-fA-F0-9]{40})\b`)
	// Base58 alphabet excludes the visually ambiguous 0, O, I, l.
	base58Re = regexp.MustCompile(`\b([1-9A-HJ-NP-Za-km-z]{32,44})\b`)
	// $-marked ticker: the $ must not follow an alphanumeric or CJK rune.
	dollarTickerRe = regexp.MustCompile(`(?:^|[^A-Za-z0-9\x{4e00}-\x{9fff}])\$([A-Za-z\x{4e00}-\x{9fff}][A-Za-z0-9\x{4e00}-\x{9fff}]*)`)
)

// ignoredTickers lists uppercase tokens that look like tickers in social
// text but never are: common English words and crypto jargon acronyms.
var ignoredTickers = map[string]bool{
	"DYOR": true, "IRL": true, "APP": true, "CEO": true, "CTO": true,
	"KBW": true, "TOKEN": true, "UI": true, "UX": true, "UIUX": true,
	"DEX": true, "US": true, "AND": true, "OR": true, "NOT": true,
	"QE": true, "BUILD": true, "DM": true, "AI": true, "FUD": true,
	"SEC": true, "IN": true, "CZ": true, "YOLO": true, "ATH": true,
	"GM": true, "AM": true, "PM": true, "RWA": true, "IF": true,
	"CEX": true, "BBW": true, "FOX": true, "QA": true, "KOL": true,
	"CA": true, "JUST": true, "DAT": true, "CAUTION": true, "KYC": true,
	"GAS": true, "SG": true, "ALERT": true, "AFTER": true, "TLDR": true,
	"YOUR": true, "CVC": true, "BC": true, "BUIDL": true, "AUM": true,
	"UAE": true, "ZH": true, "VIP": true, "PS": true, "UTC": true,
	"IOS": true, "AMA": true, "MEME": true, "TVL": true, "FYI": true,
	"EU": true, "BREAKING": true, "UK": true,
}

// Ignored reports whether the uppercase form of token is on the fixed
// ignore-list.
func Ignored(token string) bool {
	return ignoredTickers[strings.ToUpper(token)]
}

// CA scans text for a contract address. An EVM-style address (0x + 40 hex)
// always wins; a base58-like run (32-44 chars) is consulted only when no EVM
// address exists. Only the first match of whichever pattern fires is used.
func CA(text string) domain.CASignal {
	if text == "" {
		return domain.CASignal{}
	}
	if m := evmAddrRe.FindStringSubmatch(text); m != nil {
		return domain.CASignal{HasCA: true, ContractAddress: m[1], Chain: domain.ChainBSC}
	}
	if m := base58Re.FindStringSubmatch(text); m != nil {
		return domain.CASignal{HasCA: true, ContractAddress: m[1], Chain: domain.ChainSolana}
	}
	return domain.CASignal{}
}

// Tickers runs the full combined scan: three ticker tiers plus contract
// address detection, all over one input. vocab is the set of known ticker
// symbols (uppercase), sourced from the token-mapping cache.
//
// Tier 1 accepts bare words that are vocabulary members, uppercased. Tier 2
// accepts $-marked tokens in their original casing, filtered by the
// ignore-list and de-duplicated case-insensitively against tier 1. Tier 3,
// entered only when tiers 1-2 found nothing, accepts at most one all-caps
// run.
func Tickers(text string, vocab map[string]bool) domain.TickerSignal {
	if text == "" {
		return domain.TickerSignal{Tickers: []string{}}
	}

	var found []string
	seen := make(map[string]bool)

	// Tier 1: bare-word scan against the vocabulary.
	runes := []rune(text)
	for start := 0; start < len(runes); {
		if !isWordRune(runes[start]) {
			start++
			continue
		}
		end := start
		for end < len(runes) && isWordRune(runes[end]) {
			end++
		}
		token := strings.ToUpper(string(runes[start:end]))
		if vocab[token] && !seen[token] && !possessive(runes, start) {
			seen[token] = true
			found = append(found, token)
		}
		start = end
	}

	// Tier 2: $-marked tokens, original casing preserved.
	for _, m := range dollarTickerRe.FindAllStringSubmatch(text, -1) {
		token := m[1]
		upper := strings.ToUpper(token)
		if ignoredTickers[upper] || seen[upper] {
			continue
		}
		seen[upper] = true
		found = append(found, token)
	}

	// Tier 3: all-caps fallback, at most one, only when nothing matched yet.
	if len(found) == 0 {
		if token := allCapsFallback(runes); token != "" {
			found = append(found, token)
		}
	}

	sig := domain.TickerSignal{
		HasTicker: len(found) > 0,
		Tickers:   found,
	}
	if found == nil {
		sig.Tickers = []string{}
	}

	ca := CA(text)
	sig.ContractAddress = ca.ContractAddress
	sig.Chain = ca.Chain
	return sig
}

// possessive reports whether the token starting at start is a possessive
// suffix of a longer word: walking back over any $/#/@ marker run, the
// preceding character is an apostrophe that itself follows an alphanumeric
// (e.g. the "s" tail of "trader's").
func possessive(runes []rune, start int) bool {
	p := start - 1
	for p >= 0 && (runes[p] == '$' || runes[p] == '#' || runes[p] == '@') {
		p--
	}
	if p >= 0 && (runes[p] == '\'' || runes[p] == '’') {
		if p-1 >= 0 && isWordRune(runes[p-1]) {
			return true
		}
	}
	return false
}

// allCapsFallback returns the first 2-10 character all-uppercase ASCII run
// that is not adjacent to other word characters and not on the ignore-list.
func allCapsFallback(runes []rune) string {
	for start := 0; start < len(runes); {
		if !isUpperASCII(runes[start]) {
			start++
			continue
		}
		end := start
		for end < len(runes) && isUpperASCII(runes[end]) {
			end++
		}
		n := end - start
		if n >= 2 && n <= 10 &&
			!precededByWordish(runes, start) && !followedByWordish(runes, end) {
			token := string(runes[start:end])
			if !ignoredTickers[token] {
				return token
			}
		}
		start = end
	}
	return ""
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

func isUpperASCII(r rune) bool {
	return r >= 'A' && r <= 'Z'
}

// precededByWordish mirrors the fallback's left boundary: no ASCII letters,
// digits, @ or _ immediately before the run.
func precededByWordish(runes []rune, start int) bool {
	if start == 0 {
		return false
	}
	r := runes[start-1]
	return r == '@' || r == '_' || isASCIIAlnum(r)
}

// followedByWordish mirrors the right boundary: no ASCII letters, digits or
// _ immediately after the run.
func followedByWordish(runes []rune, end int) bool {
	if end >= len(runes) {
		return false
	}
	r := runes[end]
	return r == '_' || isASCIIAlnum(r)
}

func isASCIIAlnum(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}
