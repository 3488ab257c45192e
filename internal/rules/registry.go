package rules

import (
	"fmt"
	"sort"
	"strings"

	"github.com/codewithboateng/policylint/internal/ir"
)

// Pack is a named, versioned bundle of rule definitions.
type Pack struct {
	Name    string
	Version string
	Rules   []Rule
}

// Registry is the immutable rule set of one analysis run. It is safe for
// concurrent use.
type Registry struct {
	rules    []*Rule // sorted by ID
	index    map[string]*Rule
	byKind   map[NodeKind][]*Rule
	packs    []string
	settings Settings
}

// NewRegistry validates and combines packs. The engine pack is always
// included. Any definition defect fails the whole construction.
func NewRegistry(s Settings, packs ...Pack) (*Registry, error) {
	reg := &Registry{
		index:  map[string]*Rule{},
		byKind: map[NodeKind][]*Rule{},
	}
	origin := map[string]string{}

	all := append([]Pack{EnginePack()}, packs...)
	for pi, p := range all {
		reserved := pi == 0
		for i := range p.Rules {
			r := p.Rules[i]
			r.ID = strings.TrimSpace(r.ID)
			if r.Pack == "" {
				r.Pack = p.Name
			}
			if err := validate(&r, reserved); err != nil {
				return nil, err
			}
			if first, dup := origin[r.ID]; dup {
				return nil, &DuplicateRuleError{ID: r.ID, Packs: [2]string{first, r.Pack}}
			}
			origin[r.ID] = r.Pack
			rr := r
			reg.index[r.ID] = &rr
			reg.rules = append(reg.rules, &rr)
		}
		if !reserved {
			reg.packs = append(reg.packs, packLabel(p))
		}
	}

	for id, sev := range s.SeverityOverrides {
		r, ok := reg.index[id]
		if !ok {
			return nil, &RuleDefinitionError{RuleID: id, Pack: "settings", Reason: "severity override", Err: ErrUnknownRule}
		}
		if !sev.IsValid() {
			return nil, &RuleDefinitionError{RuleID: id, Pack: "settings", Reason: fmt.Sprintf("invalid severity override %q", sev)}
		}
		if id == IDAnnotationBanned && sev != ir.SeverityError {
			return nil, &RuleDefinitionError{RuleID: id, Pack: "settings", Reason: fmt.Sprintf("banned annotations are always error, cannot override to %q", sev)}
		}
		r.Severity = sev
	}
	for id := range s.Disabled {
		if _, ok := reg.index[id]; !ok {
			return nil, &RuleDefinitionError{RuleID: id, Pack: "settings", Reason: "disabled", Err: ErrUnknownRule}
		}
	}
	reg.settings = copySettings(s)

	sort.Slice(reg.rules, func(i, j int) bool { return reg.rules[i].ID < reg.rules[j].ID })
	for _, r := range reg.rules {
		if r.Target == NodeUnit || s.Disabled[r.ID] {
			continue
		}
		reg.byKind[r.Target] = append(reg.byKind[r.Target], r)
	}
	return reg, nil
}

func validate(r *Rule, reserved bool) error {
	bad := func(format string, args ...any) error {
		return &RuleDefinitionError{RuleID: r.ID, Pack: r.Pack, Reason: fmt.Sprintf(format, args...)}
	}
	if r.ID == "" {
		return bad("empty identifier")
	}
	if !reserved && (r.Category == CategoryEngine || strings.HasPrefix(r.ID, "engine-")) {
		return bad("category %q and the engine- prefix are reserved", CategoryEngine)
	}
	if !r.Category.IsValid() {
		return bad("unknown category %q", r.Category)
	}
	if !r.Category.Accepts(r.Target) {
		return bad("category %q cannot target %q nodes", r.Category, r.Target)
	}
	if !r.Severity.IsValid() {
		return bad("invalid severity %q", r.Severity)
	}
	for _, k := range r.DeclKinds {
		if !k.IsValid() {
			return bad("unknown declaration kind %q", k)
		}
	}
	if len(r.DeclKinds) > 0 && r.Target != NodeDeclaration {
		return bad("declaration kinds set on a %q rule", r.Target)
	}
	if r.Predicate == nil && !reserved {
		return bad("missing predicate")
	}
	if strings.TrimSpace(r.Message) == "" {
		return bad("empty message")
	}
	if err := r.compile(); err != nil {
		return &RuleDefinitionError{RuleID: r.ID, Pack: r.Pack, Reason: "message template", Err: err}
	}
	return nil
}

func packLabel(p Pack) string {
	if p.Version == "" {
		return p.Name
	}
	return p.Name + "@" + p.Version
}

func copySettings(s Settings) Settings {
	out := Settings{Permissive: s.Permissive, SeverityOverrides: map[string]ir.Severity{}, Disabled: map[string]bool{}}
	for k, v := range s.SeverityOverrides {
		out.SeverityOverrides[k] = v
	}
	for k, v := range s.Disabled {
		out.Disabled[k] = v
	}
	return out
}

// ForKind returns the enabled rules targeting k, ordered by ID. The slice
// is shared and must not be modified.
func (r *Registry) ForKind(k NodeKind) []*Rule { return r.byKind[k] }

// Get returns a rule by ID, including disabled and engine rules.
func (r *Registry) Get(id string) (*Rule, bool) {
	rule, ok := r.index[strings.TrimSpace(id)]
	return rule, ok
}

// List returns every rule ordered by ID.
func (r *Registry) List() []*Rule {
	out := make([]*Rule, len(r.rules))
	copy(out, r.rules)
	return out
}

func (r *Registry) Enabled(id string) bool {
	_, ok := r.index[id]
	return ok && !r.settings.Disabled[id]
}

// Packs lists the user packs as name@version, in load order.
func (r *Registry) Packs() []string { return append([]string(nil), r.packs...) }

// Settings returns the settings the registry was built with. Predicates
// receive the same value through Node.Settings.
func (r *Registry) Settings() *Settings { return &r.settings }
