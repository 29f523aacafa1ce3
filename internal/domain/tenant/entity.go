// internal/domain/tenant/entity.go
package tenant

import (
	"encoding/json"
	"fmt"
	"time"
)

// FeatureValue is a single capability entry in a plan's feature map. A value
// is either a boolean gate or a numeric limit; a limit of -1 means unlimited.
// It marshals to the raw bool / number form used on the wire.
type FeatureValue struct {
	Bool  *bool
	Limit *int64
}

// FeatureBool builds a boolean capability gate.
func FeatureBool(v bool) FeatureValue {
	return FeatureValue{Bool: &v}
}

// FeatureLimit builds a numeric capability limit. Unlimited is -1.
func FeatureLimit(n int64) FeatureValue {
	return FeatureValue{Limit: &n}
}

// Unlimited reports whether the value is the -1 sentinel.
func (f FeatureValue) Unlimited() bool {
	return f.Limit != nil && *f.Limit == -1
}

// Granted reports whether the capability is accessible: boolean true or the
// unlimited sentinel. A finite numeric limit is a quota, not a grant.
func (f FeatureValue) Granted() bool {
	if f.Bool != nil {
		return *f.Bool
	}
	return f.Unlimited()
}

func (f FeatureValue) MarshalJSON() ([]byte, error) {
	if f.Bool != nil {
		return json.Marshal(*f.Bool)
	}
	if f.Limit != nil {
		return json.Marshal(*f.Limit)
	}
	return []byte("null"), nil
}

func (f *FeatureValue) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		f.Bool = &b
		f.Limit = nil
		return nil
	}
	var n int64
	if err := json.Unmarshal(data, &n); err == nil {
		f.Limit = &n
		f.Bool = nil
		return nil
	}
	return fmt.Errorf("feature value must be a boolean or an integer, got %s", data)
}

// FeatureSet maps capability names to their plan values.
type FeatureSet map[string]FeatureValue

// Quota is the remaining headroom for a numeric capability.
type Quota struct {
	Remaining int64 `json:"remaining"`
	Unlimited bool  `json:"unlimited"`
}

// Exhausted reports whether no headroom is left.
func (q Quota) Exhausted() bool {
	return !q.Unlimited && q.Remaining <= 0
}

// Tenant is an organization on the platform.
type Tenant struct {
	ID        string           `json:"id"`
	Name      string           `json:"name"`
	Slug      string           `json:"slug"`
	Domain    string           `json:"domain,omitempty"`
	Plan      string           `json:"plan"`
	Features  FeatureSet       `json:"features"`
	Usage     map[string]int64 `json:"usage"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// CanAccess reports whether a capability is granted: boolean true or the
// unlimited sentinel. Absent features are denied.
func (t *Tenant) CanAccess(key string) bool {
	if t == nil || t.Features == nil {
		return false
	}
	return t.Features[key].Granted()
}

// Remaining computes headroom for a numeric capability:
// max(0, limit - usage), or unlimited when the limit is -1. Absent features
// and usage default to zero headroom and zero consumption respectively.
func (t *Tenant) Remaining(key string) Quota {
	if t == nil || t.Features == nil {
		return Quota{}
	}
	f, ok := t.Features[key]
	if !ok || f.Limit == nil {
		return Quota{}
	}
	if f.Unlimited() {
		return Quota{Unlimited: true}
	}
	used := int64(0)
	if t.Usage != nil {
		used = t.Usage[key]
	}
	remaining := *f.Limit - used
	if remaining < 0 {
		remaining = 0
	}
	return Quota{Remaining: remaining}
}

// Clone returns a deep copy safe to hand to callers.
func (t *Tenant) Clone() *Tenant {
	if t == nil {
		return nil
	}
	cp := *t
	cp.Features = make(FeatureSet, len(t.Features))
	for k, v := range t.Features {
		cp.Features[k] = v
	}
	cp.Usage = make(map[string]int64, len(t.Usage))
	for k, v := range t.Usage {
		cp.Usage[k] = v
	}
	return &cp
}
