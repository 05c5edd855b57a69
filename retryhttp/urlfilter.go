package retryhttp

import (
	"regexp"
	"strconv"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/gaborage/go-retryhttp/logger"
)

const maxPatternLength = 500

// Heuristics for patterns that look like catastrophic-backtracking risks:
// a quantified group that is itself quantified, a repetition bound of three
// or more digits, or a run of three or more quantifier characters. Such
// patterns are skipped with a warning and never reach the matcher.
var (
	nestedQuantifierRe = regexp.MustCompile(`\([^)]*[+*][^)]*\)\s*[+*]`)
	largeBoundRe       = regexp.MustCompile(`\{\d{3,}`)
	quantifierRunRe    = regexp.MustCompile(`[*+?]{3,}`)
)

// FilterStats provides metrics about the filter's compiled-pattern cache.
type FilterStats struct {
	Version  uint64 // Version of the currently cached compiled set
	Compiled int    // Patterns that compiled successfully
	Rejected int    // Patterns skipped as unsafe or invalid
	Rebuilds int    // Total cache rebuilds since construction
}

// URLFilter decides whether the retry engine applies to a given URL. The
// compiled-pattern cache is keyed by Config.PatternVersion and rebuilt
// wholesale when the version changes; concurrent calls may read a
// stale-but-consistent snapshot while a rebuild is in flight.
type URLFilter struct {
	log logger.Logger

	mu       sync.RWMutex
	built    bool
	version  uint64
	compiled []*regexp.Regexp
	rejected int
	rebuilds int

	sfg singleflight.Group
}

// NewURLFilter creates a filter with an empty cache.
func NewURLFilter(log logger.Logger) *URLFilter {
	return &URLFilter{log: log}
}

// ShouldRetry reports whether the retry engine applies to url under cfg.
func (f *URLFilter) ShouldRetry(url string, cfg *Config) bool {
	if len(cfg.URLPatterns) == 0 {
		// Nothing can match an empty include list; exclude (or unset) mode
		// applies retries to every URL.
		return cfg.URLFilterMode != FilterModeInclude
	}

	compiled := f.compiledFor(cfg)

	matched := false
	for _, re := range compiled {
		if re.MatchString(url) {
			matched = true
			break
		}
	}

	if cfg.URLFilterMode == FilterModeInclude {
		return matched
	}
	return !matched
}

// Stats returns a snapshot of the cache state.
func (f *URLFilter) Stats() FilterStats {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return FilterStats{
		Version:  f.version,
		Compiled: len(f.compiled),
		Rejected: f.rejected,
		Rebuilds: f.rebuilds,
	}
}

// compiledFor returns the compiled set for cfg, rebuilding when the version
// changed. Singleflight collapses concurrent rebuilds of the same version.
func (f *URLFilter) compiledFor(cfg *Config) []*regexp.Regexp {
	f.mu.RLock()
	if f.built && f.version == cfg.PatternVersion {
		compiled := f.compiled
		f.mu.RUnlock()
		return compiled
	}
	f.mu.RUnlock()

	result, _, _ := f.sfg.Do(strconv.FormatUint(cfg.PatternVersion, 10), func() (any, error) {
		// Double-check after winning the flight.
		f.mu.RLock()
		if f.built && f.version == cfg.PatternVersion {
			compiled := f.compiled
			f.mu.RUnlock()
			return compiled, nil
		}
		f.mu.RUnlock()

		compiled, rejected := f.compile(cfg.URLPatterns)

		f.mu.Lock()
		f.built = true
		f.version = cfg.PatternVersion
		f.compiled = compiled
		f.rejected = rejected
		f.rebuilds++
		f.mu.Unlock()
		return compiled, nil
	})

	compiled, _ := result.([]*regexp.Regexp)
	return compiled
}

func (f *URLFilter) compile(patterns []string) (compiled []*regexp.Regexp, rejected int) {
	compiled = make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		if reason := unsafePattern(p); reason != "" {
			rejected++
			f.log.Warn().Str("pattern", p).Str("reason", reason).Msg("Skipping unsafe URL pattern")
			continue
		}
		re, err := regexp.Compile(p)
		if err != nil {
			rejected++
			f.log.Warn().Str("pattern", p).Err(err).Msg("Skipping invalid URL pattern")
			continue
		}
		compiled = append(compiled, re)
	}
	return compiled, rejected
}

// unsafePattern returns a non-empty reason when p must not be compiled.
func unsafePattern(p string) string {
	if len(p) > maxPatternLength {
		return "pattern exceeds 500 characters"
	}
	if nestedQuantifierRe.MatchString(p) {
		return "nested unbounded quantifier"
	}
	if largeBoundRe.MatchString(p) {
		return "repetition bound of 3+ digits"
	}
	if quantifierRunRe.MatchString(p) {
		return "3+ consecutive quantifiers"
	}
	return ""
}
