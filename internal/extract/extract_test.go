package extract

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseArray(t *testing.T) {
	text := `Here are the devices I found:
[{"make":"Dell","model":"R740","serial_number":"SN1","part_number":"PN1","dp_n":"","vpn":"","mac_address":"AA:BB:CC:DD:EE:FF"},
 {"make":"HP","model":"","serial_number":"SN2","part_number":"","dp_n":"","vpn":"","mac_address":""}]
Let me know if you need anything else.`

	items, errRec := Parse(text)
	require.Nil(t, errRec)
	require.Len(t, items, 2)
	assert.Equal(t, "Dell", items[0].Make)
	assert.Equal(t, "SN2", items[1].SerialNumber)
}

func TestParseObjectFallback(t *testing.T) {
	// No array brackets anywhere: the single mapping is wrapped as a
	// one-element list.
	text := `{"make":"Cisco","model":"C9300","serial_number":"FOC1","part_number":"N/A","dp_n":"N/A","vpn":"N/A","mac_address":"N/A"}`

	items, errRec := Parse(text)
	require.Nil(t, errRec)
	require.Len(t, items, 1)
	assert.Equal(t, "Cisco", items[0].Make)
}

func TestParseFencedArray(t *testing.T) {
	text := "```json\n[{\"make\":\"Ubiquiti\",\"model\":\"U6-Lite\",\"serial_number\":\"S1\",\"part_number\":\"\",\"dp_n\":\"\",\"vpn\":\"\",\"mac_address\":\"74ACB9112233\"}]\n```"

	items, errRec := Parse(text)
	require.Nil(t, errRec)
	require.Len(t, items, 1)
	assert.Equal(t, "U6-Lite", items[0].Model)
}

func TestParseNoJSON(t *testing.T) {
	items, errRec := Parse("I could not read any labels in this image, sorry.")
	assert.Nil(t, items)
	require.NotNil(t, errRec)
	assert.Contains(t, errRec.Reason, "format issue")
	assert.Contains(t, errRec.Snippet, "could not read")
}

func TestParseInvalidJSON(t *testing.T) {
	items, errRec := Parse(`[{"make":"Dell","model":]`)
	assert.Nil(t, items)
	require.NotNil(t, errRec)
	assert.Contains(t, errRec.Reason, "decode error")
}

func TestParseUnexpectedShape(t *testing.T) {
	// Valid JSON, but neither an array nor an object once the bracketed
	// span is inspected. A bare string between braces is impossible, so
	// exercise the empty-array and non-record-array cases instead.
	items, errRec := Parse(`[]`)
	assert.Nil(t, items)
	require.NotNil(t, errRec)
	assert.Contains(t, errRec.Reason, "empty list")

	items, errRec = Parse(`[1, 2, 3]`)
	assert.Nil(t, items)
	require.NotNil(t, errRec)
	assert.Contains(t, errRec.Reason, "decode error")
}

func TestParseSnippetTruncated(t *testing.T) {
	raw := strings.Repeat("x", 2000)
	_, errRec := Parse(raw)
	require.NotNil(t, errRec)
	assert.Len(t, []rune(errRec.Snippet), snippetLimit)
}

func TestParseNeverEmptyAndNeverBoth(t *testing.T) {
	inputs := []string{
		"",
		"plain prose",
		"[]",
		"[1]",
		`{"make":"Dell"}`,
		`[{"make":"Dell"}]`,
		"{broken",
		"]backwards[",
	}
	for _, in := range inputs {
		items, errRec := Parse(in)
		if errRec == nil && len(items) == 0 {
			t.Errorf("Parse(%q) returned neither items nor an error record", in)
		}
		if errRec != nil && items != nil {
			t.Errorf("Parse(%q) returned both items and an error record", in)
		}
	}
}
