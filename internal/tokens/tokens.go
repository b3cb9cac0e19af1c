// Package tokens models design tokens extracted from a Forge configuration.
//
// Tokens are declared as nested groups in the configuration file and
// flattened into dot-separated names. Values may reference other tokens
// with the {group.name} alias syntax; references are resolved after all
// source files have been merged into a collection.
package tokens

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Token is a single design token with its flattened name.
type Token struct {
	// Name is the dot-separated token name, e.g. "color.brand.primary".
	Name string

	// Value is the token value after alias resolution.
	Value string

	// RawValue is the value as written in the source, before alias
	// resolution. Equal to Value for non-alias tokens.
	RawValue string

	// Type is the declared token type ("color", "dimension", ...), if any.
	Type string

	// Description is an optional human-readable description.
	Description string

	// Source is the path of the file the token was declared in.
	Source string
}

// IsAlias reports whether the raw value is a {reference} to another token.
func (t Token) IsAlias() bool {
	return isAlias(t.RawValue)
}

// AliasTarget returns the referenced token name for alias tokens.
func (t Token) AliasTarget() string {
	if !t.IsAlias() {
		return ""
	}
	return strings.TrimSuffix(strings.TrimPrefix(t.RawValue, "{"), "}")
}

// Collection holds the tokens of one builder context.
// Insertion order is preserved; adding a token with an existing name
// replaces the earlier definition in place.
type Collection struct {
	mu     sync.RWMutex
	byName map[string]*Token
	order  []string
}

// NewCollection creates an empty token collection.
func NewCollection() *Collection {
	return &Collection{byName: make(map[string]*Token)}
}

// Add inserts or replaces a token.
func (c *Collection) Add(t Token) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.byName[t.Name]; !exists {
		c.order = append(c.order, t.Name)
	}
	tok := t
	c.byName[t.Name] = &tok
}

// AddAll inserts all tokens in order.
func (c *Collection) AddAll(ts []Token) {
	for _, t := range ts {
		c.Add(t)
	}
}

// Get returns the token with the given name.
func (c *Collection) Get(name string) (Token, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	t, ok := c.byName[name]
	if !ok {
		return Token{}, false
	}
	return *t, true
}

// Len returns the number of tokens in the collection.
func (c *Collection) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.order)
}

// Names returns all token names in insertion order.
func (c *Collection) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, len(c.order))
	copy(names, c.order)
	return names
}

// SortedNames returns all token names sorted lexicographically.
func (c *Collection) SortedNames() []string {
	names := c.Names()
	sort.Strings(names)
	return names
}

// All returns a snapshot of all tokens in insertion order.
func (c *Collection) All() []Token {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Token, 0, len(c.order))
	for _, name := range c.order {
		out = append(out, *c.byName[name])
	}
	return out
}

// ResolveAliases resolves {reference} values against the collection.
// Chains of aliases are followed; a reference cycle or a dangling
// reference leaves Value empty and contributes an error. Resolution
// continues past individual failures so one bad token does not hide
// the rest.
func (c *Collection) ResolveAliases() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var errs []string
	for _, name := range c.order {
		tok := c.byName[name]
		if !isAlias(tok.RawValue) {
			continue
		}

		value, err := c.resolveChain(name, make(map[string]bool))
		if err != nil {
			tok.Value = ""
			errs = append(errs, err.Error())
			continue
		}
		tok.Value = value
	}

	if len(errs) > 0 {
		return fmt.Errorf("alias resolution: %s", strings.Join(errs, "; "))
	}
	return nil
}

// resolveChain follows alias references from the named token.
// Callers must hold c.mu.
func (c *Collection) resolveChain(name string, seen map[string]bool) (string, error) {
	if seen[name] {
		return "", fmt.Errorf("%s: reference cycle", name)
	}
	seen[name] = true

	tok, ok := c.byName[name]
	if !ok {
		return "", fmt.Errorf("%s: undefined token", name)
	}
	if !isAlias(tok.RawValue) {
		return tok.RawValue, nil
	}

	target := strings.TrimSuffix(strings.TrimPrefix(tok.RawValue, "{"), "}")
	return c.resolveChain(target, seen)
}

// isAlias reports whether a raw value is a {reference}.
func isAlias(v string) bool {
	return len(v) > 2 && strings.HasPrefix(v, "{") && strings.HasSuffix(v, "}")
}
