package parser

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/codewithboateng/policylint/internal/ir"
)

// MaxDocumentBytes bounds a single unit document.
const MaxDocumentBytes = 32 << 20

var suffixes = []string{".unit.json", ".unit.yaml", ".unit.yml"}

type Diagnostics struct {
	Warnings []string
}

// Result is everything ingested from one source tree. Rejected holds
// documents that could not be decoded; each becomes a skipped unit.
type Result struct {
	Source   string
	Units    []*ir.SourceUnit
	Rejected []*ir.ModelError
}

// Parse reads every unit document under path (a directory or a single
// file) in lexical order.
func Parse(path string) (Result, Diagnostics) {
	res := Result{Source: filepath.Clean(path)}
	diags := Diagnostics{}

	err := filepath.WalkDir(path, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			diags.Warnings = append(diags.Warnings, fmt.Sprintf("%s: %v", p, err))
			return nil
		}
		if d.IsDir() || !isUnitDocument(d.Name()) {
			return nil
		}
		rel, rerr := filepath.Rel(path, p)
		if rerr != nil || rel == "." {
			rel = filepath.Base(p)
		}
		rel = filepath.ToSlash(rel)

		b, rerr := readLimited(p)
		if rerr != nil {
			res.Rejected = append(res.Rejected, &ir.ModelError{Unit: rel, Reason: rerr.Error()})
			return nil
		}
		units, derr := ParseDocument(rel, b)
		if derr != nil {
			var me *ir.ModelError
			if !errors.As(derr, &me) {
				me = &ir.ModelError{Unit: rel, Reason: derr.Error()}
			}
			res.Rejected = append(res.Rejected, me)
			return nil
		}
		res.Units = append(res.Units, units...)
		return nil
	})
	if err != nil {
		diags.Warnings = append(diags.Warnings, err.Error())
	}
	if len(res.Units) == 0 && len(res.Rejected) == 0 {
		diags.Warnings = append(diags.Warnings, "no unit documents (*.unit.json, *.unit.yaml) found")
	}
	return res, diags
}

func isUnitDocument(name string) bool {
	name = strings.ToLower(name)
	for _, s := range suffixes {
		if strings.HasSuffix(name, s) {
			return true
		}
	}
	return false
}

func readLimited(p string) ([]byte, error) {
	f, err := os.Open(p)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	b, err := io.ReadAll(io.LimitReader(f, MaxDocumentBytes+1))
	if err != nil {
		return nil, err
	}
	if len(b) > MaxDocumentBytes {
		return nil, fmt.Errorf("document exceeds %d bytes", MaxDocumentBytes)
	}
	return b, nil
}

// ParseDocument decodes one document. JSON documents hold a unit object or
// an array of units; YAML documents may be a multi-document stream. Units
// without a path are named after the document. Decoding failures are
// returned as *ir.ModelError; structural checks are left to Validate.
func ParseDocument(name string, b []byte) ([]*ir.SourceUnit, error) {
	var (
		units []*ir.SourceUnit
		err   error
	)
	if strings.HasSuffix(strings.ToLower(name), ".json") {
		units, err = decodeJSON(b)
	} else {
		units, err = decodeYAML(b)
	}
	if err != nil {
		return nil, &ir.ModelError{Unit: name, Reason: "decode: " + err.Error()}
	}
	if len(units) == 0 {
		return nil, &ir.ModelError{Unit: name, Reason: "document holds no unit"}
	}
	base := trimSuffix(name)
	for i, u := range units {
		if u == nil {
			return nil, &ir.ModelError{Unit: name, Reason: fmt.Sprintf("unit %d is null", i)}
		}
		if strings.TrimSpace(u.Path) == "" {
			u.Path = base
			if len(units) > 1 {
				u.Path = fmt.Sprintf("%s#%d", base, i)
			}
		}
	}
	return units, nil
}

func decodeJSON(b []byte) ([]*ir.SourceUnit, error) {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '[' {
		var us []*ir.SourceUnit
		if err := json.Unmarshal(b, &us); err != nil {
			return nil, err
		}
		return us, nil
	}
	var u ir.SourceUnit
	if err := json.Unmarshal(b, &u); err != nil {
		return nil, err
	}
	return []*ir.SourceUnit{&u}, nil
}

func decodeYAML(b []byte) ([]*ir.SourceUnit, error) {
	dec := yaml.NewDecoder(bytes.NewReader(b))
	var us []*ir.SourceUnit
	for {
		var u ir.SourceUnit
		err := dec.Decode(&u)
		if errors.Is(err, io.EOF) {
			return us, nil
		}
		if err != nil {
			return nil, err
		}
		us = append(us, &u)
	}
}

func trimSuffix(name string) string {
	lower := strings.ToLower(name)
	for _, s := range suffixes {
		if strings.HasSuffix(lower, s) {
			return name[:len(name)-len(s)]
		}
	}
	return name
}
