package audit

import (
	"clanaudit/internal/clashapi"
	"clanaudit/internal/linker"
	"clanaudit/internal/registry"
	"clanaudit/internal/roster"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRoles answers role checks from a set of roles the server defines
// and a map of user id to held role names
type fakeRoles struct {
	guild map[string]bool
	held  map[string]map[string]bool
}

func (f fakeRoles) MemberHasRole(userID, roleName string) bool {
	return f.held[userID][roleName]
}

func (f fakeRoles) RoleExists(roleName string) bool {
	return f.guild[roleName]
}

func roleSet(names ...string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, name := range names {
		set[name] = true
	}
	return set
}

func member(name string, tag clashapi.Tag, role clashapi.Role, clanName string, clanTag clashapi.Tag) clashapi.Member {
	return clashapi.Member{Name: name, Tag: tag, Role: role, ClanName: clanName, ClanTag: clanTag}
}

func names(entries []Entry) []string {
	out := make([]string, 0, len(entries))
	for _, entry := range entries {
		out = append(out, entry.Member.Name)
	}
	return out
}

func TestRunFlagsElderRoleWithoutPromotion(t *testing.T) {

	family := registry.Family{{Name: "Alpha", Tag: "AAA", RoleName: "AlphaRole"}}
	resolver := linker.New([]linker.Association{{UserID: "user-1", Tag: "T1"}})
	roles := fakeRoles{
		guild: roleSet("Elder", "AlphaRole"),
		held:  map[string]map[string]bool{"user-1": {"Elder": true}},
	}

	report := Run(Input{
		Members:   []clashapi.Member{member("X", "T1", clashapi.RoleMember, "Alpha", "AAA")},
		Family:    family,
		Resolver:  resolver,
		Roles:     roles,
		RoleNames: DefaultRoleNames(),
	})

	alpha := report.Clan("Alpha")
	require.NotNil(t, alpha)
	assert.Equal(t, []string{"X"}, names(alpha.Entries[CategoryElderPromotion]))
	// user-1 does not hold AlphaRole either
	assert.Equal(t, []string{"X"}, names(alpha.Entries[CategoryNoClanRole]))
	assert.Empty(t, alpha.Entries[CategoryNoDiscord])
	assert.Empty(t, alpha.Entries[CategoryColeaderPromotion])
}

func TestRunElderWithElderRoleNotFlagged(t *testing.T) {

	family := registry.Family{{Name: "Alpha", Tag: "AAA", RoleName: "AlphaRole"}}
	resolver := linker.New([]linker.Association{{UserID: "user-1", Tag: "T1"}})
	roles := fakeRoles{
		guild: roleSet("Elder", "AlphaRole"),
		held:  map[string]map[string]bool{"user-1": {"Elder": true, "AlphaRole": true}},
	}

	report := Run(Input{
		Members:   []clashapi.Member{member("X", "T1", clashapi.RoleElder, "Alpha", "AAA")},
		Family:    family,
		Resolver:  resolver,
		Roles:     roles,
		RoleNames: DefaultRoleNames(),
	})

	alpha := report.Clan("Alpha")
	require.NotNil(t, alpha)
	assert.True(t, alpha.Empty())
}

func TestRunUnlinkedMemberOnlyInNoDiscord(t *testing.T) {

	family := registry.Family{{Name: "Alpha", Tag: "AAA", RoleName: "AlphaRole"}}
	resolver := linker.New(nil)
	// Even a fully decorated Discord user must not matter without a link
	roles := fakeRoles{
		guild: roleSet("Elder", "Co-Leader", "AlphaRole"),
		held:  map[string]map[string]bool{"user-1": {"Elder": true, "Co-Leader": true, "AlphaRole": true}},
	}

	report := Run(Input{
		Members:   []clashapi.Member{member("X", "T1", clashapi.RoleMember, "Alpha", "AAA")},
		Family:    family,
		Resolver:  resolver,
		Roles:     roles,
		RoleNames: DefaultRoleNames(),
	})

	alpha := report.Clan("Alpha")
	require.NotNil(t, alpha)
	assert.Equal(t, []string{"X"}, names(alpha.Entries[CategoryNoDiscord]))
	assert.Empty(t, alpha.Entries[CategoryElderPromotion])
	assert.Empty(t, alpha.Entries[CategoryColeaderPromotion])
	assert.Empty(t, alpha.Entries[CategoryNoClanRole])
}

func TestRunCoLeaderCheckIsSymmetric(t *testing.T) {

	family := registry.Family{{Name: "Alpha", Tag: "AAA"}}
	resolver := linker.New([]linker.Association{
		{UserID: "user-1", Tag: "T1"},
		{UserID: "user-2", Tag: "T2"},
	})
	roles := fakeRoles{
		guild: roleSet("Co-Leader"),
		held: map[string]map[string]bool{
			"user-1": {"Co-Leader": true}, // in-game member, flagged
			"user-2": {"Co-Leader": true}, // in-game co-leader, not flagged
		},
	}

	report := Run(Input{
		Members: []clashapi.Member{
			member("X", "T1", clashapi.RoleMember, "Alpha", "AAA"),
			member("Y", "T2", clashapi.RoleCoLeader, "Alpha", "AAA"),
		},
		Family:    family,
		Resolver:  resolver,
		Roles:     roles,
		RoleNames: DefaultRoleNames(),
	})

	alpha := report.Clan("Alpha")
	require.NotNil(t, alpha)
	assert.Equal(t, []string{"X"}, names(alpha.Entries[CategoryColeaderPromotion]))
}

func TestRunNoClanRoleCheckSkippedWithoutMapping(t *testing.T) {

	// Clan without an associated Discord role: no_clan_role never fires
	family := registry.Family{{Name: "Alpha", Tag: "AAA"}}
	resolver := linker.New([]linker.Association{{UserID: "user-1", Tag: "T1"}})
	roles := fakeRoles{
		guild: roleSet("Elder", "Co-Leader"),
		held:  map[string]map[string]bool{"user-1": {}},
	}

	report := Run(Input{
		Members:   []clashapi.Member{member("X", "T1", clashapi.RoleMember, "Alpha", "AAA")},
		Family:    family,
		Resolver:  resolver,
		Roles:     roles,
		RoleNames: DefaultRoleNames(),
	})

	alpha := report.Clan("Alpha")
	require.NotNil(t, alpha)
	assert.Empty(t, alpha.Entries[CategoryNoClanRole])
}

func TestRunSkipsClanRoleCheckWhenRoleAbsentFromGuild(t *testing.T) {

	// The configured role was never created on the server: linked members
	// must not all be flagged for a role nobody can hold
	family := registry.Family{{Name: "Alpha", Tag: "AAA", RoleName: "AlphaRole"}}
	resolver := linker.New([]linker.Association{{UserID: "user-1", Tag: "T1"}})
	roles := fakeRoles{
		guild: roleSet("Elder", "Co-Leader"),
		held:  map[string]map[string]bool{"user-1": {}},
	}

	report := Run(Input{
		Members:   []clashapi.Member{member("X", "T1", clashapi.RoleMember, "Alpha", "AAA")},
		Family:    family,
		Resolver:  resolver,
		Roles:     roles,
		RoleNames: DefaultRoleNames(),
	})

	alpha := report.Clan("Alpha")
	require.NotNil(t, alpha)
	assert.Empty(t, alpha.Entries[CategoryNoClanRole])
	assert.True(t, alpha.Empty())
}

func TestRunPreservesInputOrder(t *testing.T) {

	family := registry.Family{
		{Name: "Alpha", Tag: "AAA", RoleName: "AlphaRole"},
		{Name: "Beta", Tag: "BBB", RoleName: "BetaRole"},
	}
	resolver := linker.New(nil)
	members := []clashapi.Member{
		member("Zoe", "T3", clashapi.RoleMember, "Alpha", "AAA"),
		member("Amy", "T1", clashapi.RoleMember, "Alpha", "AAA"),
		member("Mia", "T2", clashapi.RoleMember, "Beta", "BBB"),
	}

	report := Run(Input{
		Members:   members,
		Family:    family,
		Resolver:  resolver,
		Roles:     fakeRoles{},
		RoleNames: DefaultRoleNames(),
	})

	// Clans keep family order, members keep fetch order; no sorting
	require.Len(t, report.Clans, 2)
	assert.Equal(t, "Alpha", report.Clans[0].Name)
	assert.Equal(t, "Beta", report.Clans[1].Name)
	assert.Equal(t, []string{"Zoe", "Amy"}, names(report.Clans[0].Entries[CategoryNoDiscord]))
	assert.Equal(t, []string{"Mia"}, names(report.Clans[1].Entries[CategoryNoDiscord]))
}

func TestRunIsIdempotent(t *testing.T) {

	family := registry.Family{{Name: "Alpha", Tag: "AAA", RoleName: "AlphaRole"}}
	resolver := linker.New([]linker.Association{{UserID: "user-1", Tag: "T1"}})
	roles := fakeRoles{
		guild: roleSet("Elder", "AlphaRole"),
		held:  map[string]map[string]bool{"user-1": {"Elder": true}},
	}
	input := Input{
		Members: []clashapi.Member{
			member("X", "T1", clashapi.RoleMember, "Alpha", "AAA"),
			member("Y", "T2", clashapi.RoleMember, "Alpha", "AAA"),
		},
		Family:    family,
		Resolver:  resolver,
		Roles:     roles,
		RoleNames: DefaultRoleNames(),
		Source:    roster.SourceLive,
		FetchedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}

	first := Run(input)
	second := Run(input)

	assert.NotEqual(t, first.RunID, second.RunID)
	assert.Equal(t, first.Clans, second.Clans)
	assert.Equal(t, first.Source, second.Source)
	assert.Equal(t, first.FetchedAt, second.FetchedAt)
}

func TestReportTotals(t *testing.T) {

	family := registry.Family{{Name: "Alpha", Tag: "AAA", RoleName: "AlphaRole"}}
	resolver := linker.New([]linker.Association{{UserID: "user-1", Tag: "T1"}})
	roles := fakeRoles{
		guild: roleSet("AlphaRole"),
		held:  map[string]map[string]bool{"user-1": {}},
	}

	report := Run(Input{
		Members: []clashapi.Member{
			member("X", "T1", clashapi.RoleMember, "Alpha", "AAA"),
			member("Y", "T2", clashapi.RoleMember, "Alpha", "AAA"),
		},
		Family:    family,
		Resolver:  resolver,
		Roles:     roles,
		RoleNames: DefaultRoleNames(),
	})

	assert.Equal(t, 1, report.Total(CategoryNoDiscord))
	assert.Equal(t, 1, report.Total(CategoryNoClanRole))
	assert.Equal(t, 0, report.Total(CategoryElderPromotion))
}
