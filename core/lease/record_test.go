package lease

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordRoundTrip(t *testing.T) {
	cases := []struct {
		entry  Entry
		record string
	}{
		{Entry{MAC: "00:00:00:00:00:01", IP: "10.0.0.1", Hostname: "rsa-tc", Location: ".1.1.0"}, "00:00:00:00:00:01 10.0.0.1 rsa-tc .1.1.0"},
		{Entry{MAC: "AA:BB", IP: "10.0.0.5", Hostname: "??"}, "AA:BB 10.0.0.5 ?? "},
		{Entry{MAC: "AA:BB", IP: "10.0.0.5", Location: ".11"}, "AA:BB 10.0.0.5  .11"},
		{Entry{MAC: "AA:BB", IP: "10.0.0.5"}, "AA:BB 10.0.0.5  "},
		{Entry{MAC: "AA:BB", IP: "10.0.0.5", Hostname: "h", Location: "rack 4"}, "AA:BB 10.0.0.5 h rack 4"},
	}

	for _, c := range cases {
		record, err := c.entry.MarshalText()
		require.NoError(t, err)
		assert.Equal(t, c.record, string(record))

		var decoded Entry
		require.NoError(t, decoded.UnmarshalText(record))
		assert.Equal(t, c.entry, decoded)
	}
}

func TestUnmarshalShortRecords(t *testing.T) {
	var e Entry
	require.NoError(t, e.UnmarshalText([]byte("AA:BB 10.0.0.5\r\n")))
	assert.Equal(t, Entry{MAC: "AA:BB", IP: "10.0.0.5"}, e)

	require.NoError(t, e.UnmarshalText([]byte("AA:BB")))
	assert.Equal(t, Entry{MAC: "AA:BB"}, e)

	assert.Error(t, e.UnmarshalText([]byte("\n")))
}

func TestMarshalRejectsAmbiguousFields(t *testing.T) {
	bad := []Entry{
		{IP: "10.0.0.1"},
		{MAC: "AA BB", IP: "10.0.0.1"},
		{MAC: "AA", IP: "10.0.0.1 "},
		{MAC: "AA", IP: "10.0.0.1", Hostname: "two words"},
		{MAC: "AA", IP: "10.0.0.1", Location: "line\nbreak"},
	}

	for _, e := range bad {
		_, err := e.MarshalText()
		assert.ErrorIs(t, err, ErrUnencodable, e.String())
	}
}

func TestTableCodec(t *testing.T) {
	input := "m1 10.0.0.1 rsa-tc .1.1.0\n\nm2 10.0.0.2 ?? \nm3 10.0.0.3 iSCSI .0.0.0\n"

	tbl, err := DecodeTable(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, Table{
		{MAC: "m1", IP: "10.0.0.1", Hostname: "rsa-tc", Location: ".1.1.0"},
		{MAC: "m2", IP: "10.0.0.2", Hostname: "??"},
		{MAC: "m3", IP: "10.0.0.3", Hostname: "iSCSI", Location: ".0.0.0"},
	}, tbl)

	var buf bytes.Buffer
	require.NoError(t, EncodeTable(&buf, tbl))
	assert.Equal(t, strings.Replace(input, "\n\n", "\n", 1), buf.String())

	empty, err := DecodeTable(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, empty)

	buf.Reset()
	assert.ErrorIs(t, EncodeTable(&buf, Table{{MAC: "m1"}, {IP: "x"}}), ErrUnencodable)
	assert.Zero(t, buf.Len(), "nothing must be written on error")
}

func TestRecordSizeLimit(t *testing.T) {
	prefix := "m1 10.0.0.1 h "
	fits := Entry{MAC: "m1", IP: "10.0.0.1", Hostname: "h", Location: strings.Repeat("x", MaxRecordSize-len(prefix))}

	var buf bytes.Buffer
	require.NoError(t, EncodeTable(&buf, Table{fits, {MAC: "m2", IP: "10.0.0.2"}}))

	tbl, err := DecodeTable(&buf)
	require.NoError(t, err)
	require.Len(t, tbl, 2)
	assert.Equal(t, fits, tbl[0])

	tooLong := fits
	tooLong.Location += "x"
	_, err = tooLong.MarshalText()
	assert.ErrorIs(t, err, ErrUnencodable)

	// a hand written line beyond the limit cannot be read
	_, err = DecodeTable(strings.NewReader(prefix + tooLong.Location + "\n"))
	assert.Error(t, err)
}
