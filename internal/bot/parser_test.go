package bot

import (
	"clanaudit/internal/clashapi"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRejectsForeignMessages(t *testing.T) {
	assert.Equal(t, PARSEID_NO_BOT_PREFIX, Parse("hello there").parseid)
	assert.Equal(t, PARSEID_NO_COMMAND, Parse("ca").parseid)
	assert.Equal(t, PARSEID_NO_COMMAND, Parse("ca   ").parseid)
}

func TestParseUnknownCommand(t *testing.T) {
	result := Parse("ca frobnicate")
	assert.Equal(t, PARSEID_COMMAND_NOT_RECOGNISED, result.parseid)
	assert.Contains(t, result.errorMessage, "frobnicate")
}

func TestParseSimpleCommands(t *testing.T) {
	assert.Equal(t, COMMAND_HELP, Parse("ca help").command)
	assert.Equal(t, COMMAND_CONFIG, Parse("ca config").command)
	assert.Equal(t, COMMAND_UPDATE, Parse("ca update").command)
}

func TestParsePlayerNormalizesTag(t *testing.T) {
	result := Parse("ca player #t1")
	require.Equal(t, PARSEID_OK, result.parseid)
	assert.Equal(t, clashapi.Tag("T1"), result.arguments.(clashapi.Tag))

	assert.Equal(t, PARSEID_NO_INPUT, Parse("ca player").parseid)
}

func TestParseSearchFlags(t *testing.T) {

	result := Parse("ca search royal ghost -c Alpha -n 4000 -m 5000 -l")
	require.Equal(t, PARSEID_OK, result.parseid)

	args := result.arguments.(SearchArgs)
	assert.Equal(t, "royal ghost", args.Name)
	assert.Equal(t, "Alpha", args.Clan)
	assert.Equal(t, 4000, args.Min)
	assert.Equal(t, 5000, args.Max)
	assert.True(t, args.Link)
}

func TestParseSearchDefaults(t *testing.T) {

	result := Parse("ca search")
	require.Equal(t, PARSEID_OK, result.parseid)

	args := result.arguments.(SearchArgs)
	assert.Equal(t, "", args.Name)
	assert.Equal(t, 0, args.Min)
	assert.Equal(t, 10000, args.Max)
	assert.False(t, args.Link)
}

func TestParseRunExecImpliesRoleFlags(t *testing.T) {

	result := Parse("ca run --exec --debug")
	require.Equal(t, PARSEID_OK, result.parseid)

	args := result.arguments.(RunArgs)
	assert.True(t, args.Exec)
	assert.True(t, args.AddRole)
	assert.True(t, args.RemoveRole)
	assert.True(t, args.Debug)
}

func TestParseAddNormalizesTags(t *testing.T) {
	result := Parse("ca add #aaa bbb")
	require.Equal(t, PARSEID_OK, result.parseid)
	assert.Equal(t, []clashapi.Tag{"AAA", "BBB"}, result.arguments.([]clashapi.Tag))
}

func TestParseRoleValidatesRank(t *testing.T) {

	result := Parse("ca role coleader Co-Leader of Doom")
	require.Equal(t, PARSEID_OK, result.parseid)
	args := result.arguments.(RoleArgs)
	assert.Equal(t, "coleader", args.Rank)
	assert.Equal(t, "Co-Leader of Doom", args.RoleName)

	assert.Equal(t, PARSEID_BAD_INPUT, Parse("ca role king King").parseid)
}

func TestParseAPIValidatesKind(t *testing.T) {

	result := Parse("ca api clan https://example.com/clans/")
	require.Equal(t, PARSEID_OK, result.parseid)
	args := result.arguments.(APIArgs)
	assert.Equal(t, "clan", args.Kind)

	assert.Equal(t, PARSEID_BAD_INPUT, Parse("ca api band https://example.com/").parseid)
}

func TestParseLinkAcceptsMentions(t *testing.T) {

	result := Parse("ca link <@!123456> #t1")
	require.Equal(t, PARSEID_OK, result.parseid)
	args := result.arguments.(LinkArgs)
	assert.Equal(t, "123456", args.UserID)
	assert.Equal(t, clashapi.Tag("T1"), args.Tag)

	result = Parse("ca unlink 123456")
	require.Equal(t, PARSEID_OK, result.parseid)
	assert.Equal(t, "123456", result.arguments.(string))
}
