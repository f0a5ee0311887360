// Package input turns raw domain-list lines into the randomized work list that
// seeds the scan queue.
package input

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"slices"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
)

// Delimiter separates the domain from the rest of an input line.
const Delimiter = ".\t"

// DedupMode selects how duplicate domains are removed before shuffling.
type DedupMode string

// Dedup modes.
const (
	// DedupAdjacent removes only runs of identical consecutive lines.
	DedupAdjacent DedupMode = "adjacent"
	// DedupGlobal removes every repeat, keeping the first occurrence.
	DedupGlobal DedupMode = "global"
)

// ParseDedupMode validates a configured dedup mode. Empty selects DedupAdjacent.
func ParseDedupMode(raw string) (DedupMode, error) {
	switch DedupMode(strings.ToLower(strings.TrimSpace(raw))) {
	case "", DedupAdjacent:
		return DedupAdjacent, nil
	case DedupGlobal:
		return DedupGlobal, nil
	default:
		return "", fmt.Errorf("unknown dedup mode %q", raw)
	}
}

// Options controls Build.
type Options struct {
	Dedup  DedupMode
	Rand   *rand.Rand
	Logger *zap.Logger
}

// Stats summarizes one read of the input stream.
type Stats struct {
	Lines      int
	Skipped    int
	Unreadable int
	Domains    int
}

// ParseLine extracts the domain from one input line. ok is false when the line
// has no delimiter or nothing precedes it.
func ParseLine(line string) (string, bool) {
	before, _, found := strings.Cut(line, Delimiter)
	if !found {
		return "", false
	}
	domain := strings.TrimSpace(before)
	if domain == "" {
		return "", false
	}
	return domain, true
}

// ReadDomains reads every line of r and returns the parsed domains in input
// order. Lines that are not valid UTF-8 are skipped with a warning. A reader
// error ends the read early; whatever was parsed up to that point is kept.
func ReadDomains(r io.Reader, logger *zap.Logger) ([]string, Stats) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var (
		stats   Stats
		domains []string
	)
	br := bufio.NewReader(r)
	for {
		line, err := br.ReadString('\n')
		if line != "" {
			stats.Lines++
			switch {
			case !utf8.ValidString(line):
				stats.Unreadable++
				logger.Warn("skipping unreadable input line",
					zap.Int("line", stats.Lines),
					zap.String("reason", "invalid utf-8"),
				)
			default:
				if domain, ok := ParseLine(line); ok {
					domains = append(domains, domain)
				} else {
					stats.Skipped++
				}
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				logger.Warn("input read stopped early", zap.Int("line", stats.Lines), zap.Error(err))
			}
			break
		}
	}
	stats.Domains = len(domains)
	return domains, stats
}

// Dedup removes duplicates according to mode. DedupAdjacent leaves
// non-adjacent repeats in place.
func Dedup(domains []string, mode DedupMode) []string {
	if mode == DedupGlobal {
		seen := make(map[string]struct{}, len(domains))
		out := domains[:0]
		for _, d := range domains {
			if _, ok := seen[d]; ok {
				continue
			}
			seen[d] = struct{}{}
			out = append(out, d)
		}
		return out
	}
	return slices.Compact(domains)
}

// Shuffle permutes domains in place with a uniform Fisher-Yates shuffle. A nil
// rng uses the process-wide source.
func Shuffle(domains []string, rng *rand.Rand) {
	swap := func(i, j int) { domains[i], domains[j] = domains[j], domains[i] }
	if rng == nil {
		rand.Shuffle(len(domains), swap)
		return
	}
	rng.Shuffle(len(domains), swap)
}

// Collect reads and deduplicates domains without shuffling them.
func Collect(r io.Reader, mode DedupMode, logger *zap.Logger) ([]string, Stats) {
	if logger == nil {
		logger = zap.NewNop()
	}
	domains, stats := ReadDomains(r, logger)
	logger.Info("deduplicating domains", zap.Int("domains", len(domains)), zap.String("mode", string(mode)))
	domains = Dedup(domains, mode)
	stats.Domains = len(domains)
	return domains, stats
}

// Build reads, deduplicates and shuffles the input into the order the queue
// will serve it.
func Build(r io.Reader, opts Options) ([]string, Stats) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	domains, stats := Collect(r, opts.Dedup, logger)
	logger.Info("randomizing work queue", zap.Int("domains", len(domains)))
	Shuffle(domains, opts.Rand)
	logger.Info("starting scan",
		zap.Int("domains", stats.Domains),
		zap.Int("lines", stats.Lines),
		zap.Int("skipped", stats.Skipped),
		zap.Int("unreadable", stats.Unreadable),
	)
	return domains, stats
}
