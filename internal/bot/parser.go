package bot

import (
	"clanaudit/internal/clashapi"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
)

const prefix string = "ca"

type Command int

const (
	COMMAND_HELP Command = iota
	COMMAND_CONFIG
	COMMAND_UPDATE
	COMMAND_SEARCH
	COMMAND_RUN
	COMMAND_PLAYER
	COMMAND_ADD
	COMMAND_REMOVE
	COMMAND_AUTH
	COMMAND_API
	COMMAND_ROLE
	COMMAND_LINK
	COMMAND_UNLINK
)

type ParseId int

const (
	PARSEID_OK ParseId = iota
	PARSEID_NO_BOT_PREFIX
	PARSEID_NO_COMMAND
	PARSEID_COMMAND_NOT_RECOGNISED
	PARSEID_NO_INPUT
	PARSEID_BAD_INPUT
)

var errorMessages = map[ParseId]string{
	PARSEID_NO_COMMAND:             "No command provided",
	PARSEID_COMMAND_NOT_RECOGNISED: "Command `%s` not recognised",
	PARSEID_NO_INPUT:               "Command `%s` requires an argument",
	PARSEID_BAD_INPUT:              "Bad input for command `%s`: %s",
}

type SearchArgs struct {
	Name string
	Clan string
	Min  int
	Max  int
	Link bool
}

type RunArgs struct {
	Exec       bool
	AddRole    bool
	RemoveRole bool
	Debug      bool
}

type APIArgs struct {
	Kind string // "clan" or "player"
	URL  string
}

type RoleArgs struct {
	Rank     string
	RoleName string
}

type LinkArgs struct {
	UserID string
	Tag    clashapi.Tag
}

type ParseResult struct {
	command      Command
	parseid      ParseId
	errorMessage string
	arguments    interface{}
}

var ranks = map[string]struct{}{
	"member":   {},
	"elder":    {},
	"coleader": {},
	"leader":   {},
}

func Parse(message string) ParseResult {

	noInput := func(command Command, commandString string) ParseResult {
		parseid := PARSEID_NO_INPUT
		return ParseResult{command: command, parseid: parseid, errorMessage: fmt.Sprintf(errorMessages[parseid], commandString)}
	}
	badInput := func(command Command, commandString string, reason string) ParseResult {
		parseid := PARSEID_BAD_INPUT
		return ParseResult{command: command, parseid: parseid, errorMessage: fmt.Sprintf(errorMessages[parseid], commandString, reason)}
	}

	// The message has to start with the bot prefix
	if !strings.HasPrefix(message, prefix) {
		log.Debug().Msg("Reject message not intended for the bot")
		return ParseResult{parseid: PARSEID_NO_BOT_PREFIX}
	}

	words := strings.Fields(strings.TrimSpace(message[len(prefix):]))
	if len(words) == 0 {
		parseid := PARSEID_NO_COMMAND
		return ParseResult{parseid: parseid, errorMessage: errorMessages[parseid]}
	}
	commandString := words[0]
	words = words[1:]

	switch commandString {
	case "help":
		// ca help
		return ParseResult{command: COMMAND_HELP, parseid: PARSEID_OK}
	case "config":
		// ca config
		return ParseResult{command: COMMAND_CONFIG, parseid: PARSEID_OK}
	case "update":
		// ca update
		return ParseResult{command: COMMAND_UPDATE, parseid: PARSEID_OK}
	case "search":
		// ca search [name] [-c clan] [-n min] [-m max] [-l]
		return parseSearch(words)
	case "run":
		// ca run [--exec] [--addrole] [--removerole] [--debug]
		return parseRun(words)
	case "player":
		// ca player <tag>
		command := COMMAND_PLAYER
		if len(words) == 0 {
			return noInput(command, commandString)
		}
		return ParseResult{command: command, parseid: PARSEID_OK, arguments: clashapi.NormalizeTag(words[0])}
	case "add":
		// ca add <tag> [<tag>...]
		command := COMMAND_ADD
		if len(words) == 0 {
			return noInput(command, commandString)
		}
		return ParseResult{command: command, parseid: PARSEID_OK, arguments: normalizeTags(words)}
	case "remove":
		// ca remove <tag> [<tag>...]
		command := COMMAND_REMOVE
		if len(words) == 0 {
			return noInput(command, commandString)
		}
		return ParseResult{command: command, parseid: PARSEID_OK, arguments: normalizeTags(words)}
	case "auth":
		// ca auth <token>
		command := COMMAND_AUTH
		if len(words) == 0 {
			return noInput(command, commandString)
		}
		return ParseResult{command: command, parseid: PARSEID_OK, arguments: words[0]}
	case "api":
		// ca api clan|player <url>
		command := COMMAND_API
		if len(words) < 2 {
			return noInput(command, commandString)
		}
		kind := strings.ToLower(words[0])
		if kind != "clan" && kind != "player" {
			return badInput(command, commandString, fmt.Sprintf("`%s` is not one of clan, player", words[0]))
		}
		return ParseResult{command: command, parseid: PARSEID_OK, arguments: APIArgs{Kind: kind, URL: words[1]}}
	case "role":
		// ca role member|elder|coleader|leader <role name>
		command := COMMAND_ROLE
		if len(words) < 2 {
			return noInput(command, commandString)
		}
		rank := strings.ToLower(words[0])
		if _, ok := ranks[rank]; !ok {
			return badInput(command, commandString, fmt.Sprintf("`%s` is not one of member, elder, coleader, leader", words[0]))
		}
		return ParseResult{command: command, parseid: PARSEID_OK, arguments: RoleArgs{Rank: rank, RoleName: strings.Join(words[1:], " ")}}
	case "link":
		// ca link <user id or mention> <tag>
		command := COMMAND_LINK
		if len(words) < 2 {
			return noInput(command, commandString)
		}
		return ParseResult{command: command, parseid: PARSEID_OK, arguments: LinkArgs{UserID: parseUserID(words[0]), Tag: clashapi.NormalizeTag(words[1])}}
	case "unlink":
		// ca unlink <user id or mention>
		command := COMMAND_UNLINK
		if len(words) == 0 {
			return noInput(command, commandString)
		}
		return ParseResult{command: command, parseid: PARSEID_OK, arguments: parseUserID(words[0])}
	default:
		parseid := PARSEID_COMMAND_NOT_RECOGNISED
		return ParseResult{parseid: parseid, errorMessage: fmt.Sprintf(errorMessages[parseid], commandString)}
	}
}

func parseSearch(words []string) ParseResult {

	args := SearchArgs{}
	fs := pflag.NewFlagSet("search", pflag.ContinueOnError)
	fs.StringVarP(&args.Clan, "clan", "c", "", "clan name filter")
	fs.IntVarP(&args.Min, "min", "n", 0, "minimum trophies")
	fs.IntVarP(&args.Max, "max", "m", 10000, "maximum trophies")
	fs.BoolVarP(&args.Link, "link", "l", false, "show profile links")
	if err := fs.Parse(words); err != nil {
		parseid := PARSEID_BAD_INPUT
		return ParseResult{command: COMMAND_SEARCH, parseid: parseid, errorMessage: fmt.Sprintf(errorMessages[parseid], "search", err)}
	}
	args.Name = strings.Join(fs.Args(), " ")
	return ParseResult{command: COMMAND_SEARCH, parseid: PARSEID_OK, arguments: args}
}

func parseRun(words []string) ParseResult {

	args := RunArgs{}
	fs := pflag.NewFlagSet("run", pflag.ContinueOnError)
	fs.BoolVar(&args.Exec, "exec", false, "apply both add and remove role fixes")
	fs.BoolVar(&args.AddRole, "addrole", false, "report clan roles to add")
	fs.BoolVar(&args.RemoveRole, "removerole", false, "report clan roles to remove")
	fs.BoolVar(&args.Debug, "debug", false, "log the association table")
	if err := fs.Parse(words); err != nil {
		parseid := PARSEID_BAD_INPUT
		return ParseResult{command: COMMAND_RUN, parseid: parseid, errorMessage: fmt.Sprintf(errorMessages[parseid], "run", err)}
	}
	if args.Exec {
		args.AddRole = true
		args.RemoveRole = true
	}
	return ParseResult{command: COMMAND_RUN, parseid: PARSEID_OK, arguments: args}
}

func normalizeTags(words []string) []clashapi.Tag {
	tags := make([]clashapi.Tag, 0, len(words))
	for _, word := range words {
		tags = append(tags, clashapi.NormalizeTag(word))
	}
	return tags
}

// Accept both a raw user id and a <@...> mention
func parseUserID(word string) string {
	word = strings.TrimSuffix(word, ">")
	word = strings.TrimPrefix(word, "<@")
	word = strings.TrimPrefix(word, "!")
	return word
}
