// Package rules matches new windows against the window rules from the
// configuration file.
package rules

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/intio/lwm/internal/config"
	"github.com/intio/lwm/internal/layout"
)

// ErrRuleCompile is logged when a rule pattern is not a valid regular
// expression. The rule then matches the pattern literally.
var ErrRuleCompile = errors.New("rule pattern does not compile")

// Window describes the properties rules can match on.
type Window struct {
	Class     string
	Instance  string
	Title     string
	Types     []string // _NET_WM_WINDOW_TYPE atom names
	Transient bool
}

// Overrides is the merged outcome of all rules matching a window. Nil
// fields were not set by any rule.
type Overrides struct {
	Floating      *bool
	Workspace     *int
	WorkspaceName string
	Monitor       *int
	MonitorName   string
	Fullscreen    *bool
	Above         *bool
	Below         *bool
	Sticky        *bool
	SkipTaskbar   *bool
	SkipPager     *bool
	Geometry      *layout.Rect
	Center        *bool
}

type rule struct {
	class, instance, title *regexp.Regexp
	typ                    string
	transient              *bool
	cfg                    config.WindowRule
}

// Set is an ordered list of compiled rules.
type Set struct {
	rules []rule
}

// Compile compiles every pattern once. A pattern that fails to
// compile is escaped and matched as a literal string instead.
func Compile(cfgs []config.WindowRule) *Set {
	s := &Set{}
	for i, c := range cfgs {
		r := rule{
			typ:       normalizeType(c.Type),
			transient: c.Transient,
			cfg:       c,
		}
		r.class = compile(i, "class_pattern", c.ClassPattern)
		r.instance = compile(i, "instance_pattern", c.InstancePattern)
		r.title = compile(i, "title_pattern", c.TitlePattern)
		s.rules = append(s.rules, r)
	}
	return s
}

func compile(idx int, field, pattern string) *regexp.Regexp {
	if pattern == "" {
		return nil
	}
	re, err := regexp.Compile(pattern)
	if err == nil {
		return re
	}
	log.WithFields(log.Fields{
		"rule":    idx,
		"field":   field,
		"pattern": pattern,
	}).WithError(fmt.Errorf("%w: %v", ErrRuleCompile, err)).Warn("matching literally")
	return regexp.MustCompile(regexp.QuoteMeta(pattern))
}

// normalizeType accepts "dialog" as well as "_NET_WM_WINDOW_TYPE_DIALOG".
func normalizeType(t string) string {
	if t == "" {
		return ""
	}
	t = strings.ToUpper(t)
	if !strings.HasPrefix(t, "_NET_WM_WINDOW_TYPE_") {
		t = "_NET_WM_WINDOW_TYPE_" + t
	}
	return t
}

// Len returns the number of rules.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.rules)
}

func (r *rule) matches(w Window) bool {
	if r.class != nil && !r.class.MatchString(w.Class) {
		return false
	}
	if r.instance != nil && !r.instance.MatchString(w.Instance) {
		return false
	}
	if r.title != nil && !r.title.MatchString(w.Title) {
		return false
	}
	if r.transient != nil && *r.transient != w.Transient {
		return false
	}
	if r.typ != "" {
		found := false
		for _, t := range w.Types {
			if t == r.typ {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// Match applies every matching rule in order. Later rules override
// fields set by earlier ones. The second result reports whether any
// rule matched.
func (s *Set) Match(w Window) (Overrides, bool) {
	var o Overrides
	if s == nil {
		return o, false
	}
	matched := false
	for i := range s.rules {
		r := &s.rules[i]
		if !r.matches(w) {
			continue
		}
		matched = true
		c := r.cfg
		setBool(&o.Floating, c.Floating)
		setBool(&o.Fullscreen, c.Fullscreen)
		setBool(&o.Above, c.Above)
		setBool(&o.Below, c.Below)
		setBool(&o.Sticky, c.Sticky)
		setBool(&o.SkipTaskbar, c.SkipTaskbar)
		setBool(&o.SkipPager, c.SkipPager)
		setBool(&o.Center, c.Center)
		if c.Workspace != nil {
			v := *c.Workspace
			o.Workspace, o.WorkspaceName = &v, ""
		}
		if c.WorkspaceName != "" {
			o.Workspace, o.WorkspaceName = nil, c.WorkspaceName
		}
		if c.Monitor != nil {
			v := *c.Monitor
			o.Monitor, o.MonitorName = &v, ""
		}
		if c.MonitorName != "" {
			o.Monitor, o.MonitorName = nil, c.MonitorName
		}
		if g := c.Geometry; g != nil {
			o.Geometry = &layout.Rect{X: g.X, Y: g.Y, Width: g.Width, Height: g.Height}
		}
	}
	return o, matched
}

func setBool(dst **bool, src *bool) {
	if src != nil {
		v := *src
		*dst = &v
	}
}
