package assistant

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtract_PlainProse(t *testing.T) {
	cases := []string{
		"",
		"   ",
		"DROP, COVER, HOLD ON. Stay away from windows.",
		"Move to higher ground immediately.",
		"The answer is 42",
		`"just a quoted sentence"`,
	}
	for _, raw := range cases {
		_, ok := Extract(raw)
		assert.False(t, ok, "input %q", raw)
	}
}

func TestExtract_BareObject(t *testing.T) {
	p, ok := Extract(`{"EvacuationCenters":[{"Name":"City Hall","Latitude":10.3,"Longitude":123.9}]}`)
	require.True(t, ok)
	assert.True(t, p.Structured())
}

func TestExtract_EmbeddedInProse(t *testing.T) {
	raw := `Here are the centers you asked for:
{"EvacuationCenters":[{"Name":"City Hall","Latitude":10.3,"Longitude":123.9}]}
Stay safe!`
	p, ok := Extract(raw)
	require.True(t, ok)

	c := Classify(p)
	require.Equal(t, ModeEvacuationList, c.Mode)
	require.Len(t, c.Centers, 1)
	assert.Equal(t, "City Hall", c.Centers[0].Name)
	assert.Equal(t, 10.3, c.Centers[0].Latitude)
	assert.Equal(t, 123.9, c.Centers[0].Longitude)
}

func TestExtract_MarkdownFence(t *testing.T) {
	raw := "```json\n{\"EvacuationCenters\":[{\"Name\":\"Gym\",\"Latitude\":1.0,\"Longitude\":2.0}]}\n```"
	_, ok := Extract(raw)
	assert.True(t, ok)
}

func TestExtract_SentinelMarkers(t *testing.T) {
	raw := `[OUT] {"EvacuationCenters":[{"Name":"Gym","Latitude":1,"Longitude":2}]} [/OUT]`
	_, ok := Extract(raw)
	assert.True(t, ok)
}

func TestExtract_SingleQuotedPayload(t *testing.T) {
	raw := `{'EvacuationCenters':[{'Name':'Gym','Latitude':1.5,'Longitude':2.5}]}`
	p, ok := Extract(raw)
	require.True(t, ok)

	c := Classify(p)
	require.Equal(t, ModeEvacuationList, c.Mode)
	assert.Equal(t, "Gym", c.Centers[0].Name)
}

func TestExtract_ApostropheInLegalJSON(t *testing.T) {
	// Quote normalization must not corrupt JSON that already parses.
	raw := `{"EvacuationCenters":[{"Name":"St. Mary's Hall","Latitude":1,"Longitude":2}]}`
	p, ok := Extract(raw)
	require.True(t, ok)

	c := Classify(p)
	require.Equal(t, ModeEvacuationList, c.Mode)
	assert.Equal(t, "St. Mary's Hall", c.Centers[0].Name)
}

func TestExtract_SurroundingQuotes(t *testing.T) {
	// Stray quoting around the whole blob is stripped before the parse.
	_, ok := Extract(`'{"a": [1,2]}'`)
	assert.True(t, ok)

	_, ok = Extract("“{\"a\": [1,2]}”")
	assert.True(t, ok)
}

func TestExtract_TruncatedJSON(t *testing.T) {
	// Output cut off by the model's token limit: parse failure, never a
	// partial structure.
	_, ok := Extract(`{"EvacuationCenters":[{"Name":"City Hall","Latitude":10.3,`)
	assert.False(t, ok)
}

func TestExtract_ScalarJSON(t *testing.T) {
	for _, raw := range []string{`42`, `true`, `"hello"`, `null`} {
		_, ok := Extract(raw)
		assert.False(t, ok, "input %q", raw)
	}
}

func TestExtract_HazardArray(t *testing.T) {
	raw := `[{"Name":"Typhoon Odette","Category":"4","Latitude":11.2,"Longitude":125.0,"WindSpeedKPH":195,"ETA":"2026-09-03T06:00:00Z"}]`
	p, ok := Extract(raw)
	require.True(t, ok)
	assert.True(t, p.Structured())
}
