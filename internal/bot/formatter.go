package bot

import (
	"clanaudit/internal/audit"
	"clanaudit/internal/clashapi"
	"clanaudit/internal/registry"
	"clanaudit/internal/roster"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"
	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
)

// Use "teal" color for the bot
const color int = 0x008080

// Discord rejects messages longer than this; long text is chunked
// before sending
const maxMessageLength = 2000

const profileURL = "http://cr-api.com/profile/%s"

// Pagify splits long text into chunks that fit into one Discord message,
// preferring line boundaries. A single overlong line is hard-split.
// The limit counts characters, not bytes, and splits never land inside
// a multibyte rune; member names routinely carry accented characters
func Pagify(text string, limit int) []string {

	if utf8.RuneCountInString(text) <= limit {
		if strings.TrimSpace(text) == "" {
			return nil
		}
		return []string{text}
	}

	var pages []string
	var current strings.Builder
	currentLen := 0
	for _, line := range strings.Split(text, "\n") {
		runes := []rune(line)
		// Hard-split lines that alone exceed the limit
		for len(runes) > limit {
			if currentLen > 0 {
				pages = append(pages, current.String())
				current.Reset()
				currentLen = 0
			}
			pages = append(pages, string(runes[:limit]))
			runes = runes[limit:]
		}
		if currentLen > 0 && currentLen+len(runes)+1 > limit {
			pages = append(pages, current.String())
			current.Reset()
			currentLen = 0
		}
		if currentLen > 0 {
			current.WriteString("\n")
			currentLen++
		}
		current.WriteString(string(runes))
		currentLen += len(runes)
	}
	if strings.TrimSpace(current.String()) != "" {
		pages = append(pages, current.String())
	}
	return pages
}

func pagified(text string) []Response {
	var responses []Response
	for _, page := range Pagify(text, maxMessageLength) {
		responses = append(responses, ResponseString{page})
	}
	return responses
}

func InputNotValid(errorMessage string) []Response {
	return []Response{ResponseString{fmt.Sprintf("Input not valid: \n> %s", errorMessage)}}
}

func HelpMessage() []Response {

	embed := discordgo.MessageEmbed{Title: "Commands available", Color: color}
	commands := []struct{ name, value string }{
		{"`ca config`", "Show the clans tracked for this server"},
		{"`ca update`", "Refresh the clan rosters from the API"},
		{"`ca search [name] [-c clan] [-n min] [-m max] [-l]`", "Search the family rosters for a member"},
		{"`ca run [--exec|--addrole|--removerole] [--debug]`", "Audit the family: compare in-game ranks against Discord roles"},
		{"`ca player <tag>`", "Look up a single player profile"},
		{"`ca add <tag>...` / `ca remove <tag>...`", "Register or drop tracked clan tags for this server"},
		{"`ca role <rank> <role name>`", "Associate an in-game rank with a Discord role"},
		{"`ca link <user> <tag>` / `ca unlink <user>`", "Manage Discord user to player tag associations"},
		{"`ca auth <token>` / `ca api clan|player <url>`", "Configure API access"},
	}
	for _, command := range commands {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:   command.name,
			Value:  command.value,
			Inline: false,
		})
	}
	return []Response{ResponseEmbed{embed}}
}

func ConfigMessage(family registry.Family) []Response {

	if len(family) == 0 {
		return []Response{ResponseString{"No clans are tracked for this server"}}
	}

	var buf strings.Builder
	table := tablewriter.NewWriter(&buf)
	table.SetHeader([]string{"Name", "Tag", "Role", "Type"})
	for _, clan := range family {
		table.Append([]string{clan.Name, clashapi.Tag(clan.Tag).String(), clan.RoleName, string(clan.Type)})
	}
	table.Render()

	var responses []Response
	for _, page := range Pagify(buf.String(), maxMessageLength-8) {
		responses = append(responses, ResponseString{fmt.Sprintf("```\n%s\n```", page)})
	}
	return responses
}

// Warning shown whenever results come from the roster cache instead of
// the live API
func CacheFallbackMessage(fetchedAt time.Time, missing []clashapi.Tag) []Response {

	content := fmt.Sprintf("Cannot load from API. Results are from: %s", humanize.Time(fetchedAt))
	if len(missing) > 0 {
		tags := make([]string, 0, len(missing))
		for _, tag := range missing {
			tags = append(tags, tag.String())
		}
		content += fmt.Sprintf("\nNo cached data for: %s", strings.Join(tags, ", "))
	}
	return []Response{ResponseString{content}}
}

func NoUsableDataMessage() []Response {
	return []Response{ResponseString{"Cannot reach API and cannot load from cache. Aborting…"}}
}

func APIUnavailableMessage() []Response {
	return []Response{ResponseString{"Got no response from the clan API"}}
}

func ConfigurationErrorMessage() []Response {
	return []Response{ResponseString{"Family configuration is missing or malformed. Check the family config file"}}
}

func UpdateMessage(result roster.Result) []Response {

	if result.Source == roster.SourceLive {
		return []Response{ResponseString{fmt.Sprintf("Updated %d clan rosters from the API", len(result.Clans))}}
	}
	return CacheFallbackMessage(result.FetchedAt, result.MissingTags)
}

func memberLine(member clashapi.Member, link bool) string {
	line := fmt.Sprintf("**%s** %s, %s, %s, %d", member.Name, member.Tag, member.ClanName, member.Role, member.Trophies)
	if link {
		line += "\n" + fmt.Sprintf(profileURL, member.Tag)
	}
	return line
}

func SearchResults(members []clashapi.Member, link bool) []Response {

	if len(members) == 0 {
		return []Response{ResponseString{"No results found."}}
	}
	lines := make([]string, 0, len(members))
	for _, member := range members {
		lines = append(lines, memberLine(member, link))
	}
	return pagified(strings.Join(lines, "\n"))
}

func TooManyResults(limit int) Response {
	return ResponseString{fmt.Sprintf("Found more than %d results. Returning top %d only.", limit, limit)}
}

var categoryWarnings = map[audit.Category]string{
	audit.CategoryElderPromotion:    ":warning: Has Elder role but not promoted in clan.",
	audit.CategoryColeaderPromotion: ":warning: Has Co-Leader role but not promoted in clan.",
	audit.CategoryNoDiscord:         ":x: No Discord",
}

var categoryHeadings = map[audit.Category]string{
	audit.CategoryElderPromotion:    "Elders that need to be promoted:",
	audit.CategoryColeaderPromotion: "Co-Leaders that need to be promoted:",
	audit.CategoryNoDiscord:         "No Discord:",
	audit.CategoryNoClanRole:        "No clan role on Discord:",
}

// AuditMemberDetails renders the per-member warning lines of a report.
// A member flagged in several categories gets one block carrying all of
// its warnings, in clan order then category order within the block
func AuditMemberDetails(report audit.Report) []Response {

	type memberBlock struct {
		name     string
		warnings []string
	}

	var lines []string
	for _, clan := range report.Clans {
		var order []clashapi.Tag
		blocks := map[clashapi.Tag]*memberBlock{}
		for _, category := range audit.Categories {
			for _, entry := range clan.Entries[category] {
				block, ok := blocks[entry.Member.Tag]
				if !ok {
					block = &memberBlock{name: entry.Member.Name}
					blocks[entry.Member.Tag] = block
					order = append(order, entry.Member.Tag)
				}
				warning, ok := categoryWarnings[category]
				if !ok {
					warning = fmt.Sprintf(":warning: Does not have %s", clanRoleName(entry, clan.Name))
				}
				block.warnings = append(block.warnings, warning)
			}
		}
		for _, tag := range order {
			block := blocks[tag]
			lines = append(lines, fmt.Sprintf("**%s** %s\n%s", block.name, clan.Name, strings.Join(block.warnings, "\n")))
		}
	}
	if len(lines) == 0 {
		return []Response{ResponseString{"No discrepancies found."}}
	}
	return pagified(strings.Join(lines, "\n"))
}

func clanRoleName(entry audit.Entry, fallback string) string {
	if entry.Member.ClanName != "" {
		return entry.Member.ClanName + " clan role"
	}
	return fallback + " clan role"
}

// AuditClanSummary renders the per-clan category lists of a report
func AuditClanSummary(report audit.Report) []Response {

	var lines []string
	for _, clan := range report.Clans {
		if clan.Empty() {
			continue
		}
		lines = append(lines, fmt.Sprintf("**%s**", clan.Name))
		for _, category := range audit.Categories {
			entries := clan.Entries[category]
			if len(entries) == 0 {
				continue
			}
			names := make([]string, 0, len(entries))
			for _, entry := range entries {
				names = append(names, entry.Member.Name)
			}
			lines = append(lines, categoryHeadings[category])
			lines = append(lines, strings.Join(names, ", "))
		}
	}
	return pagified(strings.Join(lines, "\n"))
}

func AuditSourceMessage(report audit.Report) Response {
	return ResponseString{fmt.Sprintf("Audit run `%s` on %s data", report.RunID, report.Source)}
}

func RoleFlagsNotice() Response {
	return ResponseString{"Role changes are reported only; apply promotions and role assignments manually."}
}

func PlayerMessage(player clashapi.Player) []Response {

	embed := discordgo.MessageEmbed{
		Title:       player.Name,
		Description: player.Tag.String(),
		Color:       color,
	}
	fields := []struct {
		name  string
		value string
	}{
		{"Trophies", fmt.Sprint(player.Trophies)},
		{"Highest Trophies", fmt.Sprint(player.BestTrophies)},
		{"Level", fmt.Sprint(player.ExpLevel)},
		{"Victories", fmt.Sprint(player.Wins)},
		{"Defeats", fmt.Sprint(player.Losses)},
	}
	if player.ClanName != "" {
		fields = append(fields, struct{ name, value string }{player.ClanName, player.Role.String()})
	}
	for _, field := range fields {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: field.name, Value: field.value, Inline: true})
	}
	return []Response{ResponseEmbed{embed}}
}

func ClanAdded(clan clashapi.Clan) Response {
	return ResponseString{fmt.Sprintf("Added clan **%s** %s", clan.Name, clan.Tag)}
}

func ClanRemoved(tag clashapi.Tag) Response {
	return ResponseString{fmt.Sprintf("Removed %s from the tracked clans", tag)}
}

func ClanNotRegistered(tag clashapi.Tag) Response {
	return ResponseString{fmt.Sprintf("%s is not a registered clan tag", tag)}
}

func SettingsUpdated() []Response {
	return []Response{ResponseString{"Updated settings."}}
}

func LinkAdded(userID string, tag clashapi.Tag) []Response {
	return []Response{ResponseString{fmt.Sprintf("Linked <@%s> to player %s", userID, tag)}}
}

func Unlinked(userID string, existed bool) []Response {
	if !existed {
		return []Response{ResponseString{fmt.Sprintf("<@%s> has no linked player tag", userID)}}
	}
	return []Response{ResponseString{fmt.Sprintf("Unlinked <@%s>", userID)}}
}
