package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-01-10")
	require.NoError(t, err)
	assert.Equal(t, NewDate(2024, time.January, 10), d)
	assert.Equal(t, "2024-01-10", d.String())
}

func TestParseDateRejectsInvalid(t *testing.T) {
	for _, s := range []string{"", "2024-1-10", "2024-02-30", "10/01/2024", "2024-01-10T00:00:00Z"} {
		_, err := ParseDate(s)
		assert.Error(t, err, "input %q", s)
	}
}

func TestDateOrdering(t *testing.T) {
	a := NewDate(2024, time.January, 31)
	b := NewDate(2024, time.February, 1)
	assert.True(t, a.Before(b))
	assert.True(t, b.After(a))
	assert.False(t, a.After(a))
	assert.False(t, a.Before(a))
}

func TestDateOfDropsTime(t *testing.T) {
	loc := time.FixedZone("UTC+8", 8*3600)
	d := DateOf(time.Date(2024, time.March, 5, 23, 59, 0, 0, loc))
	assert.Equal(t, "2024-03-05", d.String())
}

func TestDateJSON(t *testing.T) {
	b, err := json.Marshal(NewDate(2024, time.December, 1))
	require.NoError(t, err)
	assert.JSONEq(t, `"2024-12-01"`, string(b))

	var d Date
	require.NoError(t, json.Unmarshal([]byte(`"2023-07-04"`), &d))
	assert.Equal(t, NewDate(2023, time.July, 4), d)
	assert.Error(t, json.Unmarshal([]byte(`"yesterday"`), &d))
	assert.True(t, Date{}.IsZero())
}
