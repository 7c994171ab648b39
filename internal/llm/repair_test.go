package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepairStrictEnvelope(t *testing.T) {
	raw := `{"reservations":[{"guest_name":"Camila Silva","checkin_date":"2025-03-21"}]}`

	recs, tier := Repair(raw, nil)
	assert.Equal(t, TierStrict, tier)
	require.Len(t, recs, 1)
	assert.Equal(t, "Camila Silva", recs[0]["guest_name"])
}

func TestRepairBareObjectAndArray(t *testing.T) {
	recs, tier := Repair(`{"guest_name":"Ana"}`, nil)
	assert.Equal(t, TierStrict, tier)
	require.Len(t, recs, 1)
	assert.Equal(t, "Ana", recs[0]["guest_name"])

	recs, tier = Repair(`[{"guest_name":"Ana"},{"guest_name":"Rui"}]`, nil)
	assert.Equal(t, TierStrict, tier)
	assert.Len(t, recs, 2)
}

func TestRepairCodeFence(t *testing.T) {
	raw := "Here is the result:\n```json\n{\"reservations\":[{\"guest_name\":\"Ana\"}]}\n```\nDone."

	recs, tier := Repair(raw, nil)
	assert.Equal(t, TierFence, tier)
	require.Len(t, recs, 1)
	assert.Equal(t, "Ana", recs[0]["guest_name"])
}

func TestRepairTrailingCommaKeepsSynonymKeys(t *testing.T) {
	raw := `{"reservations":[{"guestName":"Camila Silva","checkin":"2025-03-21",}]}`

	recs, tier := Repair(raw, nil)
	assert.Equal(t, TierSyntactic, tier)
	require.Len(t, recs, 1)
	// the camelCase key survives repair; renaming is the sanitizer's job
	assert.Equal(t, "Camila Silva", recs[0]["guestName"])
}

func TestRepairMissingCommaBetweenObjects(t *testing.T) {
	raw := `{"reservations":[{"guest_name":"Ana"} {"guest_name":"Rui"}]}`

	recs, tier := Repair(raw, nil)
	assert.Equal(t, TierSyntactic, tier)
	assert.Len(t, recs, 2)
}

func TestRepairIsolatesArrayFromProse(t *testing.T) {
	raw := `The extraction found: {"summary": oops "reservations": [{"guest_name":"Ana"}] trailing garbage`

	recs, tier := Repair(raw, nil)
	assert.Equal(t, TierIsolate, tier)
	require.Len(t, recs, 1)
	assert.Equal(t, "Ana", recs[0]["guest_name"])
}

func TestRepairScavengesFromProse(t *testing.T) {
	raw := `I could not produce JSON. guest_name: "Camila Silva" and the check-in date "2025-03-21" was mentioned.`

	recs, tier := Repair(raw, nil)
	assert.Equal(t, TierScavenge, tier)
	require.Len(t, recs, 1)
	assert.Equal(t, "Camila Silva", recs[0]["guest_name"])
	assert.Equal(t, "2025-03-21", recs[0]["checkin_date"])
}

func TestRepairExhaustedReturnsEmpty(t *testing.T) {
	recs, tier := Repair("nothing useful here", nil)
	assert.Equal(t, TierFailed, tier)
	assert.Empty(t, recs)
}

func TestCollapseDoubledQuotes(t *testing.T) {
	// a doubled quote inside a value collapses
	assert.Equal(t, `{"a":"x"}`, CollapseDoubledQuotes(`{"a":"x""}`))
	// a legitimate empty string value stays
	assert.Equal(t, `{"a":""}`, CollapseDoubledQuotes(`{"a":""}`))
	assert.Equal(t, `{"a":"", "b":1}`, CollapseDoubledQuotes(`{"a":"", "b":1}`))
}

func TestJoinSplitStrings(t *testing.T) {
	in := "{\"notes\":\"line one\nline two\"}"
	assert.Equal(t, `{"notes":"line one line two"}`, JoinSplitStrings(in))
	// newlines outside strings are untouched
	in = "{\n\"a\": 1\n}"
	assert.Equal(t, in, JoinSplitStrings(in))
}

func TestStripCodeFencesUnbalanced(t *testing.T) {
	in := "```json\n{\"a\":1}"
	assert.Equal(t, "{\"a\":1}", StripCodeFences(in))
}
