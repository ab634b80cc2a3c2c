package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeEvent(t *testing.T) {
	tests := []struct {
		name string
		body string
		want Event
	}{
		{"zip", `{"type":"zip_clicked","zip":"19102"}`, ZipClicked{Zip: "19102"}},
		{"brush", `{"type":"time_range_brushed","start":"2017-03-01","end":"2017-03-31"}`, TimeRangeBrushed{Start: "2017-03-01", End: "2017-03-31"}},
		{"brush reset", `{"type":"time_range_reset"}`, TimeRangeReset{}},
		{"violations", `{"type":"violations_selected","violations":["METER EXPIRED"]}`, ViolationsSelected{Violations: []string{"METER EXPIRED"}}},
		{"agency", `{"type":"agency_selected","agency":"PPA"}`, AgencySelected{Agency: "PPA"}},
		{"weekdays", `{"type":"weekdays_selected","weekdays":["Monday"]}`, WeekdaysSelected{Weekdays: []string{"Monday"}}},
		{"reset", `{"type":"reset"}`, Reset{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeEvent([]byte(tt.body))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeEvent_Errors(t *testing.T) {
	_, err := DecodeEvent([]byte(`{"type":"lasso"}`))
	require.ErrorIs(t, err, ErrUnknownEvent)

	_, err = DecodeEvent([]byte(`{}`))
	require.ErrorIs(t, err, ErrUnknownEvent)

	_, err = DecodeEvent([]byte(`not json`))
	require.Error(t, err)

	_, err = DecodeEvent([]byte(`{"type":"violations_selected","violations":"METER"}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "violations_selected")

	for _, body := range []string{
		`{"type":"zip_clicked","zpi":"19102"}`,
		`{"type":"agency_selected","agency":"PPA","zip":"19102"}`,
		`{"type":"reset","all":true}`,
	} {
		_, err = DecodeEvent([]byte(body))
		require.Error(t, err, body)
		assert.Contains(t, err.Error(), "unknown field", body)
	}
}

func TestEncodeEvent_RoundTrip(t *testing.T) {
	events := []Event{
		ZipClicked{Zip: "19107"},
		TimeRangeBrushed{Start: "2017-03-01 08:00", End: "2017-03-02"},
		AgencySelected{Agency: "POLICE"},
		Reset{},
	}
	for _, ev := range events {
		data, err := EncodeEvent(ev)
		require.NoError(t, err)
		assert.Contains(t, string(data), `"type":"`+ev.Kind()+`"`)

		back, err := DecodeEvent(data)
		require.NoError(t, err)
		assert.Equal(t, ev, back)
	}
}
