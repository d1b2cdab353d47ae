package holiday

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(s string) time.Time {
	t, _ := time.Parse(time.DateOnly, s)
	return t
}

func TestBuiltinHolidays(t *testing.T) {
	c := New()

	name, ok := c.Lookup(date("2026-10-01"))
	require.True(t, ok)
	assert.Equal(t, "国庆节", name)

	assert.True(t, c.IsHoliday(date("2026-02-18")))
	assert.False(t, c.IsHoliday(date("2026-03-03")))
	assert.False(t, c.IsHoliday(date("2025-10-01")))
}

func TestAddAndForYear(t *testing.T) {
	c := New()
	require.NoError(t, c.Add("2027-01-01", "元旦"))
	assert.Error(t, c.Add("2027/01/01", "bad"))

	got := c.ForYear(2027)
	require.Len(t, got, 1)
	assert.Equal(t, Holiday{Date: "2027-01-01", Name: "元旦"}, got[0])

	all := c.ForYear(2026)
	require.Len(t, all, 11)
	assert.Equal(t, "2026-01-01", all[0].Date)
	assert.Equal(t, "2026-10-03", all[len(all)-1].Date)
}
