package clashapi

import (
	"fmt"
	"strings"
)

// Opaque identifier of a clan or a player account, without the leading '#'
type Tag string

// In-game clan rank
type Role int

const (
	RoleUnknown Role = iota
	RoleMember
	RoleElder
	RoleCoLeader
	RoleLeader
)

var roleNames = map[Role]string{
	RoleUnknown:  "Unknown",
	RoleMember:   "Member",
	RoleElder:    "Elder",
	RoleCoLeader: "Co-Leader",
	RoleLeader:   "Leader",
}

func (r Role) String() string {
	return roleNames[r]
}

// Parse the role strings the API hands out. The API has changed spelling
// over time ("coLeader" vs "co-leader"), so be liberal in what we accept
func ParseRole(s string) Role {
	switch strings.ToLower(strings.ReplaceAll(s, "-", "")) {
	case "member":
		return RoleMember
	case "elder":
		return RoleElder
	case "coleader":
		return RoleCoLeader
	case "leader":
		return RoleLeader
	default:
		return RoleUnknown
	}
}

type Member struct {
	Tag       Tag
	Name      string
	Role      Role
	Trophies  int
	ExpLevel  int
	Donations int

	// Owning clan, filled in at decode time
	ClanTag  Tag
	ClanName string
}

type Clan struct {
	Tag              Tag
	Name             string
	Description      string
	Type             string
	Score            int
	RequiredTrophies int
	MemberCount      int
	Members          []Member
}

type Player struct {
	Tag          Tag
	Name         string
	Trophies     int
	BestTrophies int
	ExpLevel     int
	Wins         int
	Losses       int
	Role         Role
	ClanTag      Tag
	ClanName     string
}

// NormalizeTag strips the leading '#' users tend to type and uppercases
// the rest, which is how the API spells tags
func NormalizeTag(s string) Tag {
	return Tag(strings.ToUpper(strings.TrimPrefix(strings.TrimSpace(s), "#")))
}

func (t Tag) String() string {
	return fmt.Sprintf("#%s", string(t))
}
