package strategy

import (
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Plan is the YAML form of an ordered phase list:
//
//	name: quarterly-audit
//	phases:
//	  - name: common
//	    kind: dictionary
//	    cost_tier: fast
//	    resources:
//	      - {type: wordlist, ref: wordlists/common.txt}
//
// Relative file references resolve against the plan's directory.
type Plan struct {
	Name   string       `yaml:"name"`
	Phases []Descriptor `yaml:"phases"`
}

var ErrEmptyPlan = errors.New("plan has no phases")

func LoadPlan(path string) (*Plan, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open plan")
	}
	defer func() { _ = f.Close() }()
	return ReadPlan(f, filepath.Dir(path))
}

func ReadPlan(r io.Reader, baseDir string) (*Plan, error) {
	var plan Plan
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&plan); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmptyPlan
		}
		return nil, errors.Wrap(err, "decode plan")
	}
	if len(plan.Phases) == 0 {
		return nil, ErrEmptyPlan
	}
	for i := range plan.Phases {
		plan.Phases[i].resolve(baseDir)
	}
	return &plan, nil
}

func (d *Descriptor) resolve(baseDir string) {
	if baseDir == "" {
		return
	}
	for i, r := range d.Resources {
		if r.Type == ResourceMask || r.Ref == "" || filepath.IsAbs(r.Ref) {
			continue
		}
		d.Resources[i].Ref = filepath.Join(baseDir, r.Ref)
	}
}
