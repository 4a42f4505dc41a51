// Package audit implements the roster reconciliation pass: it cross
// references in-game clan membership against Discord role assignments
// and produces a per-clan discrepancy report
package audit

import (
	"clanaudit/internal/clashapi"
	"clanaudit/internal/registry"
	"clanaudit/internal/roster"
	"time"

	"github.com/google/uuid"
)

// Discrepancy category. The checks are independent: one member may land
// in several categories within the same run
type Category string

const (
	// Member has no linked Discord account
	CategoryNoDiscord Category = "no_discord"
	// Member's Discord identity lacks the role mapped to their clan
	CategoryNoClanRole Category = "no_clan_role"
	// Discord Elder role held without the in-game elder rank
	CategoryElderPromotion Category = "elder_promotion_req"
	// Discord Co-Leader role held without the in-game co-leader rank
	CategoryColeaderPromotion Category = "coleader_promotion_req"
)

// Categories in report rendering order
var Categories = []Category{
	CategoryElderPromotion,
	CategoryColeaderPromotion,
	CategoryNoDiscord,
	CategoryNoClanRole,
}

// RoleChecker answers role questions by role name against the guild.
// The bot implements it from a guild snapshot
type RoleChecker interface {
	MemberHasRole(userID, roleName string) bool
	RoleExists(roleName string) bool
}

// Resolver maps a player tag to a Discord user identity.
// *linker.Linker satisfies it
type Resolver interface {
	Resolve(tag clashapi.Tag) (string, bool)
}

// Discord role names for the in-game ranks, configurable per guild
type RoleNames struct {
	Member   string
	Elder    string
	CoLeader string
	Leader   string
}

func DefaultRoleNames() RoleNames {
	return RoleNames{
		Member:   "Member",
		Elder:    "Elder",
		CoLeader: "Co-Leader",
		Leader:   "Leader",
	}
}

// Entry pairs the flagged member with the Discord identity that was
// resolved for it. UserID is empty for the no_discord category
type Entry struct {
	Member clashapi.Member
	UserID string
}

// ClanReport holds the category lists of one clan. Lists preserve the
// iteration order of the input member list; the engine never sorts
type ClanReport struct {
	Name    string
	Tag     clashapi.Tag
	Entries map[Category][]Entry
}

func (cr *ClanReport) add(category Category, entry Entry) {
	cr.Entries[category] = append(cr.Entries[category], entry)
}

// Empty reports whether no discrepancy was found for this clan
func (cr *ClanReport) Empty() bool {
	for _, entries := range cr.Entries {
		if len(entries) > 0 {
			return false
		}
	}
	return true
}

// Report is the outcome of one audit run. Built fresh on every
// invocation and never persisted
type Report struct {
	RunID     uuid.UUID
	Source    roster.Source
	FetchedAt time.Time
	Clans     []*ClanReport
}

// Clan returns the per-clan report by display name
func (r *Report) Clan(name string) *ClanReport {
	for _, clan := range r.Clans {
		if clan.Name == name {
			return clan
		}
	}
	return nil
}

// Total counts the entries across all clans for one category
func (r *Report) Total(category Category) int {
	total := 0
	for _, clan := range r.Clans {
		total += len(clan.Entries[category])
	}
	return total
}

// Input of one audit run
type Input struct {
	Members   []clashapi.Member
	Family    registry.Family
	Resolver  Resolver
	Roles     RoleChecker
	RoleNames RoleNames
	Source    roster.Source
	FetchedAt time.Time
}

// Run performs the reconciliation pass. One linear scan over the member
// list: resolution is O(1) per member after the linker's index build.
// Given identical inputs the produced report is identical (run ID aside)
func Run(in Input) Report {

	report := Report{
		RunID:     uuid.New(),
		Source:    in.Source,
		FetchedAt: in.FetchedAt,
	}

	// One per-clan bucket per family clan, in family order. Members of
	// clans outside the family get buckets appended as encountered
	byName := make(map[string]*ClanReport, len(in.Family))
	bucket := func(name string, tag clashapi.Tag) *ClanReport {
		if clan, ok := byName[name]; ok {
			return clan
		}
		clan := &ClanReport{Name: name, Tag: tag, Entries: make(map[Category][]Entry)}
		byName[name] = clan
		report.Clans = append(report.Clans, clan)
		return clan
	}
	for _, clan := range in.Family {
		bucket(clan.Name, clashapi.Tag(clan.Tag))
	}

	for _, member := range in.Members {
		clan := bucket(member.ClanName, member.ClanTag)

		userID, ok := in.Resolver.Resolve(member.Tag)
		if !ok {
			// No linked account: the role comparisons below only make
			// sense when a Discord identity exists
			clan.add(CategoryNoDiscord, Entry{Member: member})
			continue
		}
		entry := Entry{Member: member, UserID: userID}

		// Discord rank ahead of in-game rank: needs an in-game promotion
		if member.Role != clashapi.RoleElder && in.Roles.MemberHasRole(userID, in.RoleNames.Elder) {
			clan.add(CategoryElderPromotion, entry)
		}
		if member.Role != clashapi.RoleCoLeader && in.Roles.MemberHasRole(userID, in.RoleNames.CoLeader) {
			clan.add(CategoryColeaderPromotion, entry)
		}

		// Clan role check only applies when the clan maps to a role and
		// the server actually defines it
		if roleName, ok := in.Family.RoleName(member.ClanTag); ok && in.Roles.RoleExists(roleName) {
			if !in.Roles.MemberHasRole(userID, roleName) {
				clan.add(CategoryNoClanRole, entry)
			}
		}
	}

	return report
}
