package alert

import (
	"encoding/json"

	"codeberg.org/mutker/vitalsctl/internal/errors"
	"codeberg.org/mutker/vitalsctl/internal/vitals"
)

// Partial is a configuration update; nil fields are left unchanged.
type Partial struct {
	Enabled    *bool
	Thresholds map[vitals.Metric]PartialThreshold
	Channels   *PartialChannels
}

type PartialThreshold struct {
	Warning  *float64
	Critical *float64
}

type PartialChannels struct {
	Console *bool
	Storage *bool
	// Webhook set to "" disables the webhook channel.
	Webhook *string
}

// merge applies p to c. A threshold whose merged bounds are inconsistent
// keeps its previous value, as does a webhook URL that is not http(s).
func merge(c Config, p Partial) Config {
	out := c.clone()

	if p.Enabled != nil {
		out.Enabled = *p.Enabled
	}

	for m, pt := range p.Thresholds {
		if !alertable(m) {
			continue
		}
		t := out.Thresholds[m]
		if pt.Warning != nil {
			t.Warning = *pt.Warning
		}
		if pt.Critical != nil {
			t.Critical = *pt.Critical
		}
		if t.valid(m) {
			out.Thresholds[m] = t
		}
	}

	if ch := p.Channels; ch != nil {
		if ch.Console != nil {
			out.Channels.Console = *ch.Console
		}
		if ch.Storage != nil {
			out.Channels.Storage = *ch.Storage
		}
		if ch.Webhook != nil && (*ch.Webhook == "" || validWebhook(*ch.Webhook)) {
			out.Channels.Webhook = *ch.Webhook
		}
	}

	return out
}

// ParsePartial decodes a loosely typed JSON update. Fields of the wrong type
// or with unusable values are dropped; only input that is not a JSON object
// is an error.
func ParsePartial(raw []byte) (Partial, error) {
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return Partial{}, errors.New().Wrap(errors.ErrDecode, err)
	}
	if doc == nil {
		return Partial{}, errors.New().WithMessage(errors.ErrDecode, "configuration must be a JSON object")
	}

	var p Partial
	if v, ok := doc["enabled"].(bool); ok {
		p.Enabled = &v
	}

	if ths, ok := doc["thresholds"].(map[string]any); ok {
		p.Thresholds = make(map[vitals.Metric]PartialThreshold)
		for name, rawT := range ths {
			m, ok := vitals.ParseMetric(name)
			if !ok || !alertable(m) {
				continue
			}
			fields, ok := rawT.(map[string]any)
			if !ok {
				continue
			}
			pt := PartialThreshold{
				Warning:  number(fields["warning"]),
				Critical: number(fields["critical"]),
			}
			if pt.Warning != nil || pt.Critical != nil {
				p.Thresholds[m] = pt
			}
		}
	}

	if chs, ok := doc["channels"].(map[string]any); ok {
		ch := &PartialChannels{}
		if v, ok := chs["console"].(bool); ok {
			ch.Console = &v
		}
		if v, ok := chs["storage"].(bool); ok {
			ch.Storage = &v
		}
		switch v := chs["webhook"].(type) {
		case string:
			ch.Webhook = &v
		case map[string]any:
			if u, ok := v["url"].(string); ok {
				ch.Webhook = &u
			}
		case bool:
			if !v {
				empty := ""
				ch.Webhook = &empty
			}
		}
		p.Channels = ch
	}

	return p, nil
}

func number(v any) *float64 {
	f, ok := v.(float64)
	if !ok || !finite(f) || f < 0 {
		return nil
	}
	return &f
}
