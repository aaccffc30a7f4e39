// Package lquery compiles the wildcard path pattern language into anchored
// regular expressions and evaluates boolean word predicates against paths.
//
// Wildcard tokens:
//
//	*        exactly one level
//	**       any run of levels
//	*{n}     exactly n levels
//	*{n,}    n or more levels
//	*{,m}    at most m levels
//	*{n,m}   between n and m levels
//	{a,b}    one level equal to a or b
//
// A pattern containing "@" between its first and last character uses the
// flattened syntax, where "@" stands for the level separator.
package lquery

import (
	"regexp"
	"strings"

	"github.com/teranos/kbmem/errors"
)

// levelTerminator is appended to both the pattern and the candidate path so
// that bounded wildcards can consume whole "label." levels.
const levelTerminator = "."

// Substitutions run on the regex-escaped pattern, most specific first.
var (
	boundedRange = regexp.MustCompile(`\\\*\\\{(\d+),(\d+)\\\}\\\.`)
	boundedMin   = regexp.MustCompile(`\\\*\\\{(\d+),\\\}\\\.`)
	boundedMax   = regexp.MustCompile(`\\\*\\\{,(\d+)\\\}\\\.`)
	boundedExact = regexp.MustCompile(`\\\*\\\{(\d+)\\\}\\\.`)
	alternation  = regexp.MustCompile(`\\\{([^}]+)\\\}`)
)

// Pattern is a compiled wildcard path pattern.
type Pattern struct {
	source     string
	re         *regexp.Regexp
	terminated bool
}

// Compile turns a wildcard pattern into a matcher.
func Compile(pattern string) (*Pattern, error) {
	expr, terminated := ToRegex(pattern)
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrValidation, "pattern %q: %v", pattern, err)
	}
	return &Pattern{source: pattern, re: re, terminated: terminated}, nil
}

// MustCompile is like Compile but panics if the pattern cannot be compiled.
func MustCompile(pattern string) *Pattern {
	p, err := Compile(pattern)
	if err != nil {
		panic(err)
	}
	return p
}

// Match reports whether path satisfies the pattern.
func (p *Pattern) Match(path string) bool {
	if p.terminated {
		return p.re.MatchString(path + levelTerminator)
	}
	return p.re.MatchString(path)
}

// Source returns the pattern text the matcher was compiled from.
func (p *Pattern) Source() string { return p.source }

// Regex returns the compiled expression.
func (p *Pattern) Regex() string { return p.re.String() }

// Match compiles pattern and tests path against it. Patterns that do not
// compile match nothing.
func Match(path, pattern string) bool {
	p, err := Compile(pattern)
	if err != nil {
		return false
	}
	return p.Match(path)
}

// ToRegex returns the anchored expression for pattern. terminated reports
// whether candidates must carry a trailing separator when matched.
func ToRegex(pattern string) (expr string, terminated bool) {
	if IsFlattened(pattern) {
		return flattenedRegex(pattern), false
	}
	return wildcardRegex(pattern), true
}

// IsFlattened reports whether pattern uses "@" as its level separator.
func IsFlattened(pattern string) bool {
	return strings.Contains(pattern, "@") &&
		!strings.HasPrefix(pattern, "@") &&
		!strings.HasSuffix(pattern, "@")
}

func wildcardRegex(pattern string) string {
	result := regexp.QuoteMeta(pattern + levelTerminator)

	result = boundedRange.ReplaceAllString(result, `([^.]+\.){${1},${2}}`)
	result = boundedMin.ReplaceAllString(result, `([^.]+\.){${1},}`)
	result = boundedMax.ReplaceAllString(result, `([^.]+\.){0,${1}}`)
	result = boundedExact.ReplaceAllString(result, `([^.]+\.){${1}}`)

	return "^" + levelTokens(result) + "$"
}

func flattenedRegex(pattern string) string {
	parts := strings.Split(strings.ReplaceAll(pattern, "@", "."), ".*")
	for i, part := range parts {
		parts[i] = regexp.QuoteMeta(part)
	}
	return "^" + levelTokens(strings.Join(parts, ".*")) + "$"
}

// levelTokens rewrites the escaped **, * and {a,b} tokens, in that order.
func levelTokens(escaped string) string {
	escaped = strings.ReplaceAll(escaped, `\*\*`, `.*`)
	escaped = strings.ReplaceAll(escaped, `\*`, `[^.]+`)
	return alternation.ReplaceAllStringFunc(escaped, func(group string) string {
		inner := group[2 : len(group)-2]
		return "(" + strings.ReplaceAll(inner, ",", "|") + ")"
	})
}
