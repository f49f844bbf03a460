package strategy

import (
	"fmt"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/ykhdr/crack-campaign/manager/internal/digest"
	"github.com/ykhdr/crack-campaign/worker/pkg/hashcrack"
)

// Validate checks the descriptor at position index of a plan.
func (d Descriptor) Validate(index int) error {
	invalid := func(resource, reason string, args ...any) error {
		return &InvalidStrategyError{
			Index:    index,
			Name:     d.DisplayName(),
			Resource: resource,
			Reason:   fmt.Sprintf(reason, args...),
		}
	}

	layout, ok := arity[d.Kind]
	if !ok {
		return invalid("", "unknown kind %q", d.Kind)
	}
	if !d.CostTier.Known() {
		return invalid("", "unknown cost tier %q", d.CostTier)
	}
	if d.TargetScheme != "" {
		scheme, err := digest.ParseScheme(string(d.TargetScheme))
		if err != nil {
			return invalid("", "unknown target scheme %q", d.TargetScheme)
		}
		if !scheme.IsConcrete() {
			return invalid("", "target scheme %q is not a concrete scheme", d.TargetScheme)
		}
	}
	if d.Timeout < 0 {
		return invalid("", "negative timeout %s", d.Timeout)
	}
	if len(d.Resources) != len(layout) {
		return invalid("", "%s needs %d resources, got %d", d.Kind, len(layout), len(d.Resources))
	}
	for i, r := range d.Resources {
		if r.Type != layout[i] {
			return invalid(r.Ref, "resource %d must be a %s, got %q", i, layout[i], r.Type)
		}
		if err := r.check(); err != nil {
			return invalid(r.Ref, "%s", err.Error())
		}
	}
	return nil
}

func (r Resource) check() error {
	if r.Ref == "" {
		return errors.Errorf("empty %s reference", r.Type)
	}
	if strings.HasPrefix(r.Ref, "-") {
		return errors.Errorf("%s reference must not start with '-'", r.Type)
	}
	switch r.Type {
	case ResourceMask:
		_, err := hashcrack.ParseMask(r.Ref)
		return err
	case ResourceWordlist, ResourceRules:
		info, err := os.Stat(r.Ref)
		switch {
		case os.IsNotExist(err):
			return errors.Errorf("%s does not exist", r.Type)
		case err != nil:
			return err
		case !info.Mode().IsRegular():
			return errors.Errorf("%s is not a regular file", r.Type)
		case info.Size() == 0:
			return errors.Errorf("%s is empty", r.Type)
		}
		return nil
	default:
		return errors.Errorf("unknown resource type %q", r.Type)
	}
}

// ValidateAll validates every descriptor and returns the first failure.
func ValidateAll(descriptors []Descriptor) error {
	for i, d := range descriptors {
		if err := d.Validate(i); err != nil {
			return err
		}
	}
	return nil
}
