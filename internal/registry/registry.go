// Package registry resolves the family of tracked clans: the ordered list
// of clan descriptors (display name, tag, Discord role name, membership
// tier) that every fetch and audit operates on
package registry

import (
	"clanaudit/internal/clashapi"
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// Fatal for every dependent operation: without a valid family
// configuration there is nothing to fetch or audit
var ErrConfig = errors.New("family configuration missing or malformed")

// Membership tier of a clan within the family
type Tier string

const (
	TierFamily    Tier = "family"
	TierAffiliate Tier = "affiliate"
)

type Clan struct {
	Name     string `yaml:"name"`
	Tag      string `yaml:"tag"`
	RoleName string `yaml:"role_name"`
	Type     Tier   `yaml:"type"`
}

// Family is a resolved, ordered list of clan descriptors
type Family []Clan

type Registry struct {
	clans Family
}

// Load reads the static family configuration. A missing or malformed
// file fails fast; nothing downstream can run without it
func Load(path string) (*Registry, error) {

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfig, err)
	}

	var raw struct {
		Clans []Clan `yaml:"clans"`
	}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfig, err)
	}

	for i := range raw.Clans {
		clan := &raw.Clans[i]
		if clan.Name == "" || clan.Tag == "" {
			return nil, fmt.Errorf("%w: clan entry %d has no name or tag", ErrConfig, i)
		}
		clan.Tag = string(clashapi.NormalizeTag(clan.Tag))
		if clan.Type == "" {
			clan.Type = TierFamily
		}
	}

	log.Info().Msg(fmt.Sprintf("Loaded family configuration with %d clans from %s", len(raw.Clans), path))
	return &Registry{clans: raw.Clans}, nil
}

// Family resolves the effective clan list: the static configuration
// first, then any extra descriptors registered at runtime (per guild).
// A tag already present in the static configuration cannot be shadowed
func (r *Registry) Family(extra ...Clan) Family {

	family := make(Family, 0, len(r.clans)+len(extra))
	seen := make(map[string]struct{}, len(r.clans)+len(extra))
	for _, clan := range r.clans {
		family = append(family, clan)
		seen[clan.Tag] = struct{}{}
	}
	for _, clan := range extra {
		if _, ok := seen[clan.Tag]; ok {
			continue
		}
		family = append(family, clan)
		seen[clan.Tag] = struct{}{}
	}
	return family
}

// Tags returns the clan tags of the family, optionally filtered by tier.
// An empty tier means all tiers
func (f Family) Tags(tier Tier) []clashapi.Tag {
	tags := make([]clashapi.Tag, 0, len(f))
	for _, clan := range f {
		if tier == "" || clan.Type == tier {
			tags = append(tags, clashapi.Tag(clan.Tag))
		}
	}
	return tags
}

// RoleName is the pure tag to Discord role name lookup used by the
// audit engine. The second value is false for clans outside the family
// or without an associated role
func (f Family) RoleName(tag clashapi.Tag) (string, bool) {
	for _, clan := range f {
		if clan.Tag == string(tag) {
			return clan.RoleName, clan.RoleName != ""
		}
	}
	return "", false
}

// ByName finds a clan descriptor by its display name
func (f Family) ByName(name string) (Clan, bool) {
	for _, clan := range f {
		if clan.Name == name {
			return clan, true
		}
	}
	return Clan{}, false
}
