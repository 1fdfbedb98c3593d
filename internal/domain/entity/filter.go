package entity

import (
	"fmt"
	"regexp"
	"strings"
)

// FilterAction is an action a matching filter rule applies to an item.
type FilterAction string

const (
	ActionHighlight FilterAction = "highlight"
	ActionExclude   FilterAction = "exclude"
	ActionTag       FilterAction = "tag"
	ActionAlert     FilterAction = "alert"
)

// ConditionKind discriminates the tagged union stored in Filter.Condition.
type ConditionKind string

const (
	ConditionKeywords ConditionKind = "keywords"
	ConditionRegex    ConditionKind = "regex"
	ConditionCompound ConditionKind = "compound"
)

// CompoundOp is the boolean operator joining a compound condition's children.
type CompoundOp string

const (
	OpAnd CompoundOp = "and"
	OpOr  CompoundOp = "or"
	OpNot CompoundOp = "not"
)

// Condition is a node in a filter's condition tree. Exactly one of the
// kind-specific fields is populated, selected by Kind.
type Condition struct {
	Kind ConditionKind

	// ConditionKeywords
	Field         string   // "title", "content", "author", "summary", or "" for all text fields
	Keywords      []string
	MatchAll      bool // AND vs OR across Keywords
	NotContains   bool // invert: match when none of the keywords are present
	CaseSensitive bool // default false: both pattern and field text are lowercased before matching

	// ConditionRegex
	Pattern string
	compiled *regexp.Regexp

	// ConditionCompound
	Op       CompoundOp
	Children []Condition
}

// Compile pre-compiles any regex nodes in the condition tree. It stops at
// the first malformed pattern and returns its error; that node, and any
// regex node of the tree not yet reached, stays uncompiled and never
// matches. Callers may still keep evaluating the rest of the filter set.
func (c *Condition) Compile() error {
	switch c.Kind {
	case ConditionRegex:
		pattern := c.Pattern
		if !c.CaseSensitive {
			pattern = "(?i)" + pattern
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return fmt.Errorf("compile regex %q: %w", c.Pattern, err)
		}
		c.compiled = re
	case ConditionCompound:
		for i := range c.Children {
			if err := c.Children[i].Compile(); err != nil {
				return err
			}
		}
	}
	return nil
}

func fieldValue(item *CollectedItem, field string) string {
	switch strings.ToLower(field) {
	case "title":
		return item.Title
	case "content":
		return item.Content
	case "author":
		return item.Author
	case "summary":
		return item.Summary
	default: // "all" or unset: every text field concatenated
		return item.Title + "\n" + item.Content + "\n" + item.Summary + "\n" + item.Author
	}
}

// Evaluate recursively evaluates the condition tree against item,
// returning whether it matched and, for leaf conditions, the text that
// produced the match (empty for compound nodes).
func (c *Condition) Evaluate(item *CollectedItem) (bool, string) {
	switch c.Kind {
	case ConditionKeywords:
		text := fieldValue(item, c.Field)
		if !c.CaseSensitive {
			text = strings.ToLower(text)
		}
		matchedCount := 0
		var firstMatch string
		for _, kw := range c.Keywords {
			needle := kw
			if !c.CaseSensitive {
				needle = strings.ToLower(needle)
			}
			if strings.Contains(text, needle) {
				matchedCount++
				if firstMatch == "" {
					firstMatch = kw
				}
			}
		}
		matched := false
		if c.MatchAll {
			matched = matchedCount == len(c.Keywords) && len(c.Keywords) > 0
		} else {
			matched = matchedCount > 0
		}
		if c.NotContains {
			matched = !matched
		}
		return matched, firstMatch
	case ConditionRegex:
		if c.compiled == nil {
			return false, ""
		}
		text := fieldValue(item, c.Field)
		loc := c.compiled.FindString(text)
		return loc != "" || c.compiled.MatchString(text), loc
	case ConditionCompound:
		switch c.Op {
		case OpNot:
			if len(c.Children) == 0 {
				return false, ""
			}
			m, _ := c.Children[0].Evaluate(item)
			return !m, ""
		case OpOr:
			for i := range c.Children {
				if m, v := c.Children[i].Evaluate(item); m {
					return true, v
				}
			}
			return false, ""
		default: // OpAnd
			var lastValue string
			for i := range c.Children {
				m, v := c.Children[i].Evaluate(item)
				if !m {
					return false, ""
				}
				lastValue = v
			}
			return true, lastValue
		}
	default:
		return false, ""
	}
}

// Filter is a user-defined rule evaluated against every collected item.
type Filter struct {
	ID             string
	Name           string
	Enabled        bool
	Priority       int // ascending: lower priority values are evaluated first
	Condition      Condition
	Actions        []FilterAction
	Tags           []string
	ScoreModifier  float64
	AlertSeverity  string
}
