package protocol

import (
	"bufio"
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadLine_StripsTrailingNewline(t *testing.T) {
	r := bufio.NewReader(strings.NewReader("AUTH token123\nUPLOAD x 5\n"))

	line, err := ReadLine(r)
	require.NoError(t, err)
	assert.Equal(t, "AUTH token123", line)

	line, err = ReadLine(r)
	require.NoError(t, err)
	assert.Equal(t, "UPLOAD x 5", line)
}

func TestParseLine_TolerantOfExtraWhitespace(t *testing.T) {
	req := ParseLine("  UPLOAD    alice/note   12 ")
	assert.Equal(t, VerbUpload, req.Verb)
	assert.Equal(t, []string{"alice/note", "12"}, req.Args)
}

func TestParseLine_EmptyLineYieldsEmptyVerb(t *testing.T) {
	req := ParseLine("   ")
	assert.Empty(t, req.Verb)
}

func TestParseLine_LowercasesNormalizedToUpperVerb(t *testing.T) {
	req := ParseLine("auth secret")
	assert.Equal(t, VerbAuth, req.Verb)
}

func TestParseAuth_RejectsWrongArgCount(t *testing.T) {
	_, ok := ParseAuth(ParseLine("AUTH"))
	assert.False(t, ok)

	_, ok = ParseAuth(ParseLine("AUTH a b"))
	assert.False(t, ok)

	token, ok := ParseAuth(ParseLine("AUTH secret-token"))
	assert.True(t, ok)
	assert.Equal(t, "secret-token", token)
}

func TestParseUpload_ParsesNameAndSize(t *testing.T) {
	name, size, ok := ParseUpload(ParseLine("UPLOAD alice/note 12"))
	require.True(t, ok)
	assert.Equal(t, "alice/note", name)
	assert.EqualValues(t, 12, size)
}

func TestParseUpload_RejectsNonNumericSize(t *testing.T) {
	_, _, ok := ParseUpload(ParseLine("UPLOAD note abc"))
	assert.False(t, ok)
}

func TestParseSingleName_RequiresExactlyOneArg(t *testing.T) {
	_, ok := ParseSingleName(ParseLine("DOWNLOAD"))
	assert.False(t, ok)

	name, ok := ParseSingleName(ParseLine("DOWNLOAD alice/note"))
	require.True(t, ok)
	assert.Equal(t, "alice/note", name)
}

func TestParseList_OptionalUserArgument(t *testing.T) {
	user, ok := ParseList(ParseLine("LIST"))
	require.True(t, ok)
	assert.Empty(t, user)

	user, ok = ParseList(ParseLine("LIST alice"))
	require.True(t, ok)
	assert.Equal(t, "alice", user)

	_, ok = ParseList(ParseLine("LIST alice bob"))
	assert.False(t, ok)
}

func TestWriteError_FramesStatusAndMessage(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteError(&buf, ErrInvalidFilename))
	assert.Equal(t, "ERROR Invalid filename\n", buf.String())
}

func TestWriteDownloadHeader_FramesSizeOnly(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteDownloadHeader(&buf, 12))
	assert.Equal(t, "SUCCESS 12\n", buf.String())
}

func TestErrInvalidCommandFormat_IncludesVerb(t *testing.T) {
	assert.Equal(t, "Invalid UPLOAD command format", ErrInvalidCommandFormat(VerbUpload))
}
