package rulesdsl

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/codewithboateng/policylint/internal/ir"
	"github.com/codewithboateng/policylint/internal/rules"
)

//go:embed packs/default.yaml
var defaultPack []byte

// DefaultSource names the embedded pack in errors and listings.
const DefaultSource = "builtin:default.yaml"

type dslPack struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	Annotations   *dslAnnotations   `yaml:"annotations"`
	Documentation *dslDocumentation `yaml:"documentation"`
	Resources     *dslResources     `yaml:"resources"`
	Concurrency   *dslConcurrency   `yaml:"concurrency"`
	Naming        *dslNaming        `yaml:"naming"`
	Exceptions    *struct{}         `yaml:"exceptions"`

	Custom []dslRule `yaml:"custom"`
}

type dslAnnotations struct {
	Entries []struct {
		Name    string `yaml:"name"`
		Tier    string `yaml:"tier"`
		Reason  string `yaml:"reason"`
		Require *struct {
			Option     string `yaml:"option"`
			Value      string `yaml:"value"`
			WhenMarker string `yaml:"when_marker"`
		} `yaml:"require"`
	} `yaml:"entries"`
	Nullable []string `yaml:"nullable"`
}

type dslDocumentation struct {
	DeprecationAnnotation string `yaml:"deprecation_annotation"`
	MissingSeverity       string `yaml:"missing_severity"`
}

type dslResources struct {
	Capabilities []string `yaml:"capabilities"`
	CloseMethod  string   `yaml:"close_method"`
}

type dslConcurrency struct {
	Markers []string `yaml:"markers"`
	Guard   string   `yaml:"guard"`
}

type dslNaming struct {
	ConstantExemptions []string `yaml:"constant_exemptions"`
}

type dslRule struct {
	ID        string   `yaml:"id"`
	Category  string   `yaml:"category"`
	Target    string   `yaml:"target"`
	DeclKinds []string `yaml:"decl_kinds"`
	Severity  string   `yaml:"severity"`
	Summary   string   `yaml:"summary"`
	Message   string   `yaml:"message"`
	When      string   `yaml:"when"` // CEL, must yield bool
}

// Default returns the embedded house-style pack.
func Default() (rules.Pack, error) {
	return Parse(DefaultSource, defaultPack)
}

// DefaultYAML returns the embedded pack source, for `rules --dump`.
func DefaultYAML() []byte { return append([]byte(nil), defaultPack...) }

// LoadFiles parses each pack file in order. With no paths the embedded
// default pack is returned.
func LoadFiles(paths ...string) ([]rules.Pack, error) {
	if len(paths) == 0 {
		p, err := Default()
		if err != nil {
			return nil, err
		}
		return []rules.Pack{p}, nil
	}
	var packs []rules.Pack
	for _, path := range paths {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read rules pack: %w", err)
		}
		p, err := Parse(path, b)
		if err != nil {
			return nil, err
		}
		packs = append(packs, p)
	}
	return packs, nil
}

// Parse turns one YAML pack document into a rules.Pack. Every section
// present contributes its built-in rules; custom rules are compiled here,
// so expression errors surface before any unit is analyzed.
func Parse(source string, b []byte) (rules.Pack, error) {
	var dp dslPack
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&dp); err != nil && !errors.Is(err, io.EOF) {
		return rules.Pack{}, &rules.RuleDefinitionError{Pack: source, Reason: "parse yaml", Err: err}
	}
	name := strings.TrimSpace(dp.Name)
	if name == "" {
		return rules.Pack{}, &rules.RuleDefinitionError{Pack: source, Reason: "pack has no name"}
	}
	version := dp.Version
	if version == "" {
		version = "0"
	}
	defErr := func(id, format string, args ...any) error {
		return &rules.RuleDefinitionError{RuleID: id, Pack: name, Reason: fmt.Sprintf(format, args...)}
	}

	pack := rules.Pack{Name: name, Version: version}
	add := func(p rules.Pack) { pack.Rules = append(pack.Rules, p.Rules...) }

	if a := dp.Annotations; a != nil {
		policy := rules.AnnotationPolicy{NullableNames: a.Nullable}
		for _, e := range a.Entries {
			entry := rules.AnnotationEntry{Name: e.Name, Tier: rules.Tier(strings.ToLower(e.Tier)), Reason: e.Reason}
			if e.Require != nil {
				entry.Require = &rules.OptionRequirement{Option: e.Require.Option, Value: e.Require.Value, WhenMarker: e.Require.WhenMarker}
			}
			policy.Entries = append(policy.Entries, entry)
		}
		p, err := rules.AnnotationPack(name, version, policy)
		if err != nil {
			return rules.Pack{}, err
		}
		add(p)
	}
	if d := dp.Documentation; d != nil {
		policy := rules.DocPolicy{DeprecationAnnotation: d.DeprecationAnnotation}
		if d.MissingSeverity != "" {
			sev, err := ir.ParseSeverity(d.MissingSeverity)
			if err != nil {
				return rules.Pack{}, defErr(rules.IDDocMissingPublic, "missing_severity: %v", err)
			}
			policy.MissingSeverity = sev
		}
		add(rules.DocumentationPack(name, version, policy))
	}
	if r := dp.Resources; r != nil {
		add(rules.ResourcePack(name, version, rules.ResourcePolicy{Capabilities: r.Capabilities, CloseMethod: r.CloseMethod}))
	}
	if c := dp.Concurrency; c != nil {
		add(rules.ConcurrencyPack(name, version, rules.ConcurrencyPolicy{Markers: c.Markers, Guard: c.Guard}))
	}
	if n := dp.Naming; n != nil {
		add(rules.NamingPack(name, version, rules.NamingPolicy{ConstantExemptions: n.ConstantExemptions}))
	}
	if dp.Exceptions != nil {
		add(rules.ExceptionPack(name, version))
	}

	for _, cr := range dp.Custom {
		r, err := compileCustom(cr)
		if err != nil {
			var def *rules.RuleDefinitionError
			if errors.As(err, &def) {
				def.Pack = name
				return rules.Pack{}, def
			}
			return rules.Pack{}, defErr(cr.ID, "%v", err)
		}
		r.Pack = name
		pack.Rules = append(pack.Rules, r)
	}
	return pack, nil
}

func compileCustom(cr dslRule) (rules.Rule, error) {
	id := strings.TrimSpace(cr.ID)
	if id == "" || cr.Category == "" || cr.Target == "" || cr.Severity == "" || cr.Message == "" || cr.When == "" {
		return rules.Rule{}, &rules.RuleDefinitionError{RuleID: id, Reason: "missing required fields (id/category/target/severity/message/when)"}
	}
	sev, err := ir.ParseSeverity(cr.Severity)
	if err != nil {
		return rules.Rule{}, &rules.RuleDefinitionError{RuleID: id, Reason: "severity", Err: err}
	}
	r := rules.Rule{
		ID:       id,
		Category: rules.Category(strings.ToLower(cr.Category)),
		Target:   rules.NodeKind(strings.ToLower(cr.Target)),
		Severity: sev,
		Summary:  cr.Summary,
		Message:  cr.Message,
	}
	for _, k := range cr.DeclKinds {
		r.DeclKinds = append(r.DeclKinds, ir.DeclKind(strings.ToLower(k)))
	}
	pred, err := compileWhen(cr.When)
	if err != nil {
		return rules.Rule{}, &rules.RuleDefinitionError{RuleID: id, Reason: "compile when expression", Err: err}
	}
	r.Predicate = pred
	return r, nil
}
