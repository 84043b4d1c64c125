// Package output assigns final artifact paths from naming templates and
// guards against path and hash conflicts.
package output

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
)

// InvalidTemplateError is returned when a naming template contains an
// unknown token.
type InvalidTemplateError struct {
	Template string
	Token    string
}

func (e *InvalidTemplateError) Error() string {
	return fmt.Sprintf("unknown token %s in output template %q", e.Token, e.Template)
}

// HashCollisionConflict reports two artifacts with the same final path and
// hash but different bytes. This indicates a hasher defect and is always
// fatal.
type HashCollisionConflict struct {
	FinalPath string
	Hash      string
}

func (e *HashCollisionConflict) Error() string {
	return fmt.Sprintf("content hash collision at %s (hash %s): different bytes map to the same path", e.FinalPath, e.Hash)
}

// PathConflictError reports two different-content artifacts planned onto
// the same final path.
type PathConflictError struct {
	FinalPath string
}

func (e *PathConflictError) Error() string {
	return fmt.Sprintf("two different artifacts claim final path %s", e.FinalPath)
}

var tokenPattern = regexp.MustCompile(`\[([a-z]+)\]`)

// knownTokens are the substitutions a template may use.
var knownTokens = map[string]bool{
	"name":        true,
	"contenthash": true,
	"ext":         true,
}

// Planner substitutes naming templates and tracks claimed final paths.
// The claim table is the only pipeline structure mutated concurrently;
// access is exclusive per claim.
type Planner struct {
	mu sync.Mutex
	// claims maps final path to the full content digest of the bytes
	// planned there, catching both path conflicts and hasher defects.
	claims map[string]claim
}

type claim struct {
	fragment string
	fullSum  string
}

// NewPlanner creates a planner with an empty claim table.
func NewPlanner() *Planner {
	return &Planner{claims: make(map[string]claim)}
}

// Plan substitutes [name], [contenthash] and [ext] in the template.
// The logical name is slug-normalized; ext keeps its leading dot. Fails
// with InvalidTemplateError on unknown tokens.
func (p *Planner) Plan(logicalName, hash, ext, template string) (string, error) {
	for _, match := range tokenPattern.FindAllStringSubmatch(template, -1) {
		if !knownTokens[match[1]] {
			return "", &InvalidTemplateError{Template: template, Token: match[0]}
		}
	}

	replacer := strings.NewReplacer(
		"[name]", Slug(logicalName),
		"[contenthash]", hash,
		"[ext]", ext,
	)
	return replacer.Replace(template), nil
}

// Claim records an artifact at its final path. Identical bytes at the same
// path are deduplicated silently; different bytes under the same hash are
// a HashCollisionConflict, and different hashes on one path are a
// PathConflictError.
func (p *Planner) Claim(finalPath, hashFragment, fullSum string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	existing, ok := p.claims[finalPath]
	if !ok {
		p.claims[finalPath] = claim{fragment: hashFragment, fullSum: fullSum}
		return nil
	}
	if existing.fullSum == fullSum {
		// Same bytes, same path: intentional dedup.
		return nil
	}
	if existing.fragment == hashFragment {
		return &HashCollisionConflict{FinalPath: finalPath, Hash: hashFragment}
	}
	return &PathConflictError{FinalPath: finalPath}
}

// Claimed returns the number of distinct final paths claimed.
func (p *Planner) Claimed() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.claims)
}
