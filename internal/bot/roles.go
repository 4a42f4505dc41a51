package bot

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"
)

// guildRoles is a one-shot snapshot of a guild's role assignments,
// taken at the start of an audit run. It implements audit.RoleChecker
type guildRoles struct {
	roleIDs     map[string]string            // role name -> role id
	memberRoles map[string]map[string]string // user id -> role id set
}

func newGuildRoles(discord *discordgo.Session, guildID string) (*guildRoles, error) {

	roles, err := discord.GuildRoles(guildID)
	if err != nil {
		return nil, fmt.Errorf("could not list roles of guild %s: %w", guildID, err)
	}
	snapshot := &guildRoles{
		roleIDs:     make(map[string]string, len(roles)),
		memberRoles: map[string]map[string]string{},
	}
	for _, role := range roles {
		snapshot.roleIDs[role.Name] = role.ID
	}

	// Page through the member list; guilds of this size fit in a few pages
	after := ""
	for {
		members, err := discord.GuildMembers(guildID, after, 1000)
		if err != nil {
			return nil, fmt.Errorf("could not list members of guild %s: %w", guildID, err)
		}
		if len(members) == 0 {
			break
		}
		for _, member := range members {
			held := make(map[string]string, len(member.Roles))
			for _, roleID := range member.Roles {
				held[roleID] = roleID
			}
			snapshot.memberRoles[member.User.ID] = held
			after = member.User.ID
		}
		if len(members) < 1000 {
			break
		}
	}
	log.Debug().Msg(fmt.Sprintf("Snapshot of guild %s: %d roles, %d members", guildID, len(snapshot.roleIDs), len(snapshot.memberRoles)))

	return snapshot, nil
}

// HasMember reports whether the user is still present on the server
func (g *guildRoles) HasMember(userID string) bool {
	_, ok := g.memberRoles[userID]
	return ok
}

// RoleExists reports whether the guild defines a role with this name
func (g *guildRoles) RoleExists(roleName string) bool {
	_, ok := g.roleIDs[roleName]
	return ok
}

func (g *guildRoles) MemberHasRole(userID, roleName string) bool {
	roleID, ok := g.roleIDs[roleName]
	if !ok {
		return false
	}
	held, ok := g.memberRoles[userID]
	if !ok {
		return false
	}
	_, ok = held[roleID]
	return ok
}
