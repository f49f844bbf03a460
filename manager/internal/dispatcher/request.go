package dispatcher

import (
	"time"

	"github.com/pkg/errors"
	"github.com/ykhdr/crack-campaign/manager/internal/campaign"
	"github.com/ykhdr/crack-campaign/manager/internal/digest"
	"github.com/ykhdr/crack-campaign/manager/internal/strategy"
	"github.com/ykhdr/crack-campaign/manager/pkg/api"
)

var ErrNoPhases = errors.New("request has neither phases nor a plan")

// toParams converts an API request. Defaults fill in the scheme and strict
// mode when the request leaves them out.
func toParams(req *api.CampaignRequest, defaults campaign.Params) (campaign.Params, error) {
	p := campaign.Params{
		Name:        req.Name,
		Digests:     req.Digests,
		PlanFile:    req.Plan,
		ForceScheme: defaults.ForceScheme,
		Strict:      defaults.Strict || req.Strict,
		Known:       defaults.Known,
	}
	if req.ForceScheme != "" {
		scheme, err := digest.ParseScheme(req.ForceScheme)
		if err != nil {
			return p, err
		}
		p.ForceScheme = scheme
	}
	if req.Plan == "" && len(req.Phases) == 0 {
		return p, ErrNoPhases
	}
	for i, ph := range req.Phases {
		d, err := toDescriptor(ph)
		if err != nil {
			return p, errors.Wrapf(err, "phase %d", i)
		}
		p.Strategies = append(p.Strategies, d)
	}
	return p, nil
}

func toDescriptor(ph api.PhaseRequest) (strategy.Descriptor, error) {
	d := strategy.Descriptor{
		Name:         ph.Name,
		Kind:         strategy.Kind(ph.Kind),
		CostTier:     strategy.CostTier(ph.CostTier),
		TargetScheme: digest.Scheme(ph.TargetScheme),
	}
	for _, r := range ph.Resources {
		d.Resources = append(d.Resources, strategy.Resource{
			Type: strategy.ResourceType(r.Type),
			Ref:  r.Ref,
		})
	}
	if ph.Timeout != "" {
		timeout, err := time.ParseDuration(ph.Timeout)
		if err != nil {
			return d, errors.Wrap(err, "invalid timeout")
		}
		d.Timeout = timeout
	}
	return d, nil
}
