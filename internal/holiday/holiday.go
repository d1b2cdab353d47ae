// Package holiday answers whether a calendar date is a public holiday.
package holiday

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// Holiday is a named date.
type Holiday struct {
	Date string `json:"date"`
	Name string `json:"name"`
}

// builtin holds the statutory holidays known at build time, keyed by year and
// then by "MM-DD".
var builtin = map[int]map[string]string{
	2026: {
		"01-01": "元旦",
		"02-17": "春节",
		"02-18": "春节",
		"02-19": "春节",
		"04-05": "清明节",
		"05-01": "劳动节",
		"06-19": "端午节",
		"09-25": "中秋节",
		"10-01": "国庆节",
		"10-02": "国庆节",
		"10-03": "国庆节",
	},
}

// Calendar is a set of holidays. It is safe for concurrent use.
type Calendar struct {
	mu   sync.RWMutex
	days map[int]map[string]string
}

// New returns a calendar seeded with the built-in table.
func New() *Calendar {
	c := &Calendar{days: make(map[int]map[string]string)}
	for year, days := range builtin {
		for md, name := range days {
			c.days[year] = setDefault(c.days[year])
			c.days[year][md] = name
		}
	}
	return c
}

func setDefault(m map[string]string) map[string]string {
	if m == nil {
		return make(map[string]string)
	}
	return m
}

// Add registers an extra holiday. date must be YYYY-MM-DD.
func (c *Calendar) Add(date, name string) error {
	t, err := time.Parse(time.DateOnly, date)
	if err != nil {
		return fmt.Errorf("invalid holiday date %q: %w", date, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.days[t.Year()] = setDefault(c.days[t.Year()])
	c.days[t.Year()][t.Format("01-02")] = name
	return nil
}

// Lookup returns the holiday name for t's calendar date.
func (c *Calendar) Lookup(t time.Time) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	name, ok := c.days[t.Year()][t.Format("01-02")]
	return name, ok
}

func (c *Calendar) IsHoliday(t time.Time) bool {
	_, ok := c.Lookup(t)
	return ok
}

// ForYear lists the holidays of year in date order.
func (c *Calendar) ForYear(year int) []Holiday {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Holiday, 0, len(c.days[year]))
	for md, name := range c.days[year] {
		out = append(out, Holiday{Date: fmt.Sprintf("%d-%s", year, md), Name: name})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}
