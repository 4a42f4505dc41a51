package bot

import (
	"clanaudit/internal/audit"
	"clanaudit/internal/clashapi"
	"clanaudit/internal/common"
	"clanaudit/internal/linker"
	"clanaudit/internal/registry"
	"clanaudit/internal/roster"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/mozillazg/go-unidecode"
	"github.com/rs/zerolog/log"
)

// At most this many search results are rendered
const searchLimit = 10

type Bot struct {
	token           string
	settings        *Settings
	registry        *registry.Registry
	client          *clashapi.Client
	roster          *roster.Service
	refreshExecutor common.TimedExecutor
	mainCycle       time.Duration
}

func New(token string, settings *Settings, reg *registry.Registry, client *clashapi.Client, rosterService *roster.Service, refreshInterval, mainCycle time.Duration) *Bot {

	bot := &Bot{
		token:     token,
		settings:  settings,
		registry:  reg,
		client:    client,
		roster:    rosterService,
		mainCycle: mainCycle,
	}
	// Keep the cached rosters warm the same way for every guild
	bot.refreshExecutor = common.NewTimedExecutor(refreshInterval, bot.refreshRosters)
	return bot
}

func (bot *Bot) Run() error {

	discord, err := discordgo.New("Bot " + bot.token)
	if err != nil {
		return fmt.Errorf("could not create discord session: %w", err)
	}

	discord.AddHandler(bot.Receive)
	discord.Identify.Intents |= discordgo.IntentsGuildMembers

	if err := discord.Open(); err != nil {
		return fmt.Errorf("could not open discord session: %w", err)
	}
	defer discord.Close()

	log.Info().Msg("Bot is running, waiting for interrupt")
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	ticker := time.NewTicker(bot.mainCycle)
	defer ticker.Stop()
	for {
		select {
		case <-interrupt:
			log.Info().Msg("Interrupted, shutting down")
			return nil
		case <-ticker.C:
			bot.refreshExecutor.Execute()
		}
	}
}

// Periodic roster refresh, so that fallbacks have something fresh to
// fall back to even if nobody runs update by hand
func (bot *Bot) refreshRosters() {

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	tags := bot.registry.Family().Tags("")
	if len(tags) == 0 {
		return
	}
	result, err := bot.roster.FetchFamily(ctx, tags)
	if err != nil {
		log.Error().Err(err).Msg("Periodic roster refresh failed")
		return
	}
	log.Info().Msg(fmt.Sprintf("Periodic roster refresh: %d clans from %s", len(result.Clans), result.Source))
}

func (bot *Bot) Receive(discord *discordgo.Session, message *discordgo.MessageCreate) {

	// Reject my own messages
	if message.Author.ID == discord.State.User.ID {
		return
	}

	// Ignore messages from private channels
	if message.GuildID == "" {
		log.Debug().Msg("Ignoring private message")
		bot.sendResponses(discord, message.ChannelID, []Response{ResponseString{"For the time being, I am ignoring private messages"}})
		return
	}

	parseResult := Parse(message.Content)
	switch parseResult.parseid {
	case PARSEID_NO_BOT_PREFIX:
		return
	case PARSEID_OK:
		log.Info().Msg(fmt.Sprintf("Command understood: %s", message.Content))
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		var responses []Response
		switch parseResult.command {
		case COMMAND_HELP:
			responses = HelpMessage()
		case COMMAND_CONFIG:
			responses = bot.config(message.GuildID)
		case COMMAND_UPDATE:
			responses = bot.update(ctx, message.GuildID)
		case COMMAND_SEARCH:
			switch args := parseResult.arguments.(type) {
			default:
				panic(fmt.Sprintf("unexpected type of search arguments %T", args))
			case SearchArgs:
				responses = bot.search(ctx, message.GuildID, args)
			}
		case COMMAND_RUN:
			switch args := parseResult.arguments.(type) {
			default:
				panic(fmt.Sprintf("unexpected type of run arguments %T", args))
			case RunArgs:
				responses = bot.run(ctx, discord, message.GuildID, args)
			}
		case COMMAND_PLAYER:
			switch tag := parseResult.arguments.(type) {
			default:
				panic(fmt.Sprintf("unexpected type of player tag %T", tag))
			case clashapi.Tag:
				responses = bot.player(ctx, tag)
			}
		case COMMAND_ADD:
			switch tags := parseResult.arguments.(type) {
			default:
				panic(fmt.Sprintf("unexpected type of clan tags %T", tags))
			case []clashapi.Tag:
				responses = bot.addClans(ctx, message.GuildID, tags)
			}
		case COMMAND_REMOVE:
			switch tags := parseResult.arguments.(type) {
			default:
				panic(fmt.Sprintf("unexpected type of clan tags %T", tags))
			case []clashapi.Tag:
				responses = bot.removeClans(message.GuildID, tags)
			}
		case COMMAND_AUTH:
			switch token := parseResult.arguments.(type) {
			default:
				panic(fmt.Sprintf("unexpected type of auth token %T", token))
			case string:
				responses = bot.auth(token)
			}
		case COMMAND_API:
			switch args := parseResult.arguments.(type) {
			default:
				panic(fmt.Sprintf("unexpected type of api arguments %T", args))
			case APIArgs:
				responses = bot.api(args)
			}
		case COMMAND_ROLE:
			switch args := parseResult.arguments.(type) {
			default:
				panic(fmt.Sprintf("unexpected type of role arguments %T", args))
			case RoleArgs:
				responses = bot.role(message.GuildID, args)
			}
		case COMMAND_LINK:
			switch args := parseResult.arguments.(type) {
			default:
				panic(fmt.Sprintf("unexpected type of link arguments %T", args))
			case LinkArgs:
				responses = bot.link(message.GuildID, args)
			}
		case COMMAND_UNLINK:
			switch userID := parseResult.arguments.(type) {
			default:
				panic(fmt.Sprintf("unexpected type of user id %T", userID))
			case string:
				responses = bot.unlink(message.GuildID, userID)
			}
		default:
			panic(fmt.Sprintf("Command %d is not one of the possible ones", parseResult.command))
		}
		bot.sendResponses(discord, message.ChannelID, responses)
	default:
		errorMessage := parseResult.errorMessage
		log.Info().Msg(fmt.Sprintf("Wrong input: '%s'. Reason: %s", message.Content, errorMessage))
		bot.sendResponses(discord, message.ChannelID, InputNotValid(errorMessage))
	}
}

func (bot *Bot) sendResponses(discord *discordgo.Session, channelId string, responses []Response) {
	for _, response := range responses {
		response.Send(channelId, discord)
	}
}

// family resolves the effective clan list for a guild: the static
// configuration plus the clans registered at runtime
func (bot *Bot) family(guildID string) registry.Family {
	return bot.registry.Family(bot.settings.GuildClans(guildID)...)
}

func (bot *Bot) roleNames(guildID string) audit.RoleNames {
	names := bot.settings.RoleNames(guildID)
	return audit.RoleNames{
		Member:   names["member"],
		Elder:    names["elder"],
		CoLeader: names["coleader"],
		Leader:   names["leader"],
	}
}

func (bot *Bot) config(guildID string) []Response {
	return ConfigMessage(bot.family(guildID))
}

func (bot *Bot) update(ctx context.Context, guildID string) []Response {

	family := bot.family(guildID)
	if len(family) == 0 {
		return ConfigurationErrorMessage()
	}
	result, err := bot.roster.FetchFamily(ctx, family.Tags(""))
	if err != nil {
		log.Error().Err(err).Msg("Update failed")
		return APIUnavailableMessage()
	}
	if result.NoUsableData() {
		return NoUsableDataMessage()
	}
	return UpdateMessage(result)
}

// fetchMembers is the shared fetch-or-fallback entry of search and run.
// The second return value carries the responses to send instead when
// there is no usable data at all
func (bot *Bot) fetchMembers(ctx context.Context, family registry.Family) (roster.Result, []Response) {

	result, err := bot.roster.FetchFamily(ctx, family.Tags(""))
	if err != nil {
		log.Error().Err(err).Msg("Family fetch failed")
		return roster.Result{}, APIUnavailableMessage()
	}
	if result.NoUsableData() {
		return roster.Result{}, NoUsableDataMessage()
	}
	return result, nil
}

func (bot *Bot) search(ctx context.Context, guildID string, args SearchArgs) []Response {

	family := bot.family(guildID)
	if len(family) == 0 {
		return ConfigurationErrorMessage()
	}
	result, failure := bot.fetchMembers(ctx, family)
	if failure != nil {
		return failure
	}

	var responses []Response
	if result.Source == roster.SourceCache {
		responses = append(responses, CacheFallbackMessage(result.FetchedAt, result.MissingTags)...)
	}

	members := roster.FlattenMembers(result.Clans)
	matches := filterMembers(members, args)
	if len(matches) > searchLimit {
		responses = append(responses, TooManyResults(searchLimit))
		matches = matches[:searchLimit]
	}
	return append(responses, SearchResults(matches, args.Link)...)
}

// filterMembers applies the search filters: name (plain substring, then
// accent-folded), clan name and trophy range
func filterMembers(members []clashapi.Member, args SearchArgs) []clashapi.Member {

	var matches []clashapi.Member
	name := strings.ToLower(args.Name)
	clan := strings.ToLower(args.Clan)
	for _, member := range members {
		if name != "" {
			plain := strings.ToLower(member.Name)
			folded := strings.ToLower(unidecode.Unidecode(member.Name))
			if !strings.Contains(plain, name) && !strings.Contains(folded, name) {
				continue
			}
		}
		if clan != "" && !strings.Contains(strings.ToLower(member.ClanName), clan) {
			continue
		}
		if member.Trophies < args.Min || member.Trophies > args.Max {
			continue
		}
		matches = append(matches, member)
	}
	return matches
}

func (bot *Bot) run(ctx context.Context, discord *discordgo.Session, guildID string, args RunArgs) []Response {

	family := bot.family(guildID)
	if len(family) == 0 {
		return ConfigurationErrorMessage()
	}

	// Show the configuration the audit runs against, like config does
	responses := ConfigMessage(family)

	result, failure := bot.fetchMembers(ctx, family)
	if failure != nil {
		return append(responses, failure...)
	}
	if result.Source == roster.SourceCache {
		responses = append(responses, CacheFallbackMessage(result.FetchedAt, result.MissingTags)...)
	}

	snapshot, err := newGuildRoles(discord, guildID)
	if err != nil {
		log.Error().Err(err).Msg("Could not snapshot guild roles")
		return append(responses, ResponseString{"Could not read the server's roles and members"})
	}

	// Users who left the server no longer count as linked
	associations := bot.settings.Associations(guildID)
	present := associations[:0]
	for _, assoc := range associations {
		if snapshot.HasMember(assoc.UserID) {
			present = append(present, assoc)
		}
	}
	if args.Debug {
		for _, assoc := range present {
			log.Debug().Msg(fmt.Sprintf("Association: %s -> %s", assoc.UserID, assoc.Tag))
		}
	}

	report := audit.Run(audit.Input{
		Members:   roster.FlattenMembers(result.Clans),
		Family:    family,
		Resolver:  linker.New(present),
		Roles:     snapshot,
		RoleNames: bot.roleNames(guildID),
		Source:    result.Source,
		FetchedAt: result.FetchedAt,
	})

	responses = append(responses, AuditSourceMessage(report))
	responses = append(responses, AuditMemberDetails(report)...)
	responses = append(responses, AuditClanSummary(report)...)
	if args.AddRole || args.RemoveRole {
		responses = append(responses, RoleFlagsNotice())
	}
	return responses
}

func (bot *Bot) player(ctx context.Context, tag clashapi.Tag) []Response {

	// Single lookups have no cache fallback: an API failure fails the call
	player, err := bot.client.GetPlayer(ctx, tag)
	if err != nil {
		log.Error().Err(err).Msg(fmt.Sprintf("Could not fetch player %s", tag))
		return APIUnavailableMessage()
	}
	return PlayerMessage(player)
}

func (bot *Bot) addClans(ctx context.Context, guildID string, tags []clashapi.Tag) []Response {

	var responses []Response
	for _, tag := range tags {
		// Fetch the clan once so the stored descriptor carries its name
		clan, err := bot.client.GetClan(ctx, tag)
		if err != nil {
			log.Error().Err(err).Msg(fmt.Sprintf("Could not fetch clan %s while registering", tag))
			responses = append(responses, ResponseString{fmt.Sprintf("Could not fetch clan %s, it was not registered", tag)})
			continue
		}
		descriptor := registry.Clan{Name: clan.Name, Tag: string(clan.Tag), Type: registry.TierAffiliate}
		if err := bot.settings.AddClan(guildID, descriptor); err != nil {
			log.Error().Err(err).Msg("Could not persist settings")
			responses = append(responses, ResponseString{"Could not save settings"})
			continue
		}
		responses = append(responses, ClanAdded(clan))
	}
	return responses
}

func (bot *Bot) removeClans(guildID string, tags []clashapi.Tag) []Response {

	var responses []Response
	for _, tag := range tags {
		removed, err := bot.settings.RemoveClan(guildID, tag)
		if err != nil {
			log.Error().Err(err).Msg("Could not persist settings")
			responses = append(responses, ResponseString{"Could not save settings"})
			continue
		}
		if !removed {
			responses = append(responses, ClanNotRegistered(tag))
			continue
		}
		responses = append(responses, ClanRemoved(tag))
	}
	return responses
}

func (bot *Bot) auth(token string) []Response {
	if err := bot.settings.SetAuthToken(token); err != nil {
		log.Error().Err(err).Msg("Could not persist settings")
		return []Response{ResponseString{"Could not save settings"}}
	}
	bot.client.SetToken(token)
	return SettingsUpdated()
}

func (bot *Bot) api(args APIArgs) []Response {

	var err error
	switch args.Kind {
	case "clan":
		if err = bot.settings.SetClanAPIURL(args.URL); err == nil {
			bot.client.SetClanURL(args.URL)
		}
	case "player":
		if err = bot.settings.SetPlayerAPIURL(args.URL); err == nil {
			bot.client.SetPlayerURL(args.URL)
		}
	}
	if err != nil {
		log.Error().Err(err).Msg("Could not persist settings")
		return []Response{ResponseString{"Could not save settings"}}
	}
	return SettingsUpdated()
}

func (bot *Bot) role(guildID string, args RoleArgs) []Response {
	if err := bot.settings.SetRoleName(guildID, args.Rank, args.RoleName); err != nil {
		log.Error().Err(err).Msg("Could not persist settings")
		return []Response{ResponseString{"Could not save settings"}}
	}
	return SettingsUpdated()
}

func (bot *Bot) link(guildID string, args LinkArgs) []Response {

	// Warn when the tag is already claimed; first association keeps
	// winning either way, so the operator should know
	for _, assoc := range bot.settings.Associations(guildID) {
		if assoc.Tag == args.Tag && assoc.UserID != args.UserID {
			log.Warn().Msg(fmt.Sprintf("Tag %s is already linked to user %s", args.Tag, assoc.UserID))
		}
	}
	if err := bot.settings.Link(guildID, args.UserID, args.Tag); err != nil {
		log.Error().Err(err).Msg("Could not persist settings")
		return []Response{ResponseString{"Could not save settings"}}
	}
	return LinkAdded(args.UserID, args.Tag)
}

func (bot *Bot) unlink(guildID, userID string) []Response {
	existed, err := bot.settings.Unlink(guildID, userID)
	if err != nil {
		log.Error().Err(err).Msg("Could not persist settings")
		return []Response{ResponseString{"Could not save settings"}}
	}
	return Unlinked(userID, existed)
}
