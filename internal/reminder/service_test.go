package reminder

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notexe/companion/internal/clock"
	"github.com/notexe/companion/internal/database"
	"github.com/notexe/companion/internal/device"
	"github.com/notexe/companion/internal/holiday"
)

const testMAC = "aa:bb:cc:dd:ee:ff"

// movableClock is a clock tests can advance.
type movableClock struct{ now time.Time }

func (c *movableClock) Now() time.Time { return c.now }

type fixture struct {
	db       *sql.DB
	store    *Store
	svc      *Service
	clock    *movableClock
	deviceID int64
	logs     *test.Hook
}

func newFixture(t *testing.T, now time.Time) *fixture {
	t.Helper()

	db, err := database.Open(filepath.Join(t.TempDir(), "companion.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	_, err = db.ExecContext(ctx, `INSERT INTO users (id, username, token, created_at) VALUES (1, 'alice', 'tok', ?)`, database.FormatTime(now))
	require.NoError(t, err)

	devices := device.NewStore(db)
	added, err := devices.Add(ctx, 1, "desk bot", "AA-BB-CC-DD-EE-FF", now)
	require.NoError(t, err)

	log, hook := test.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)

	clk := &movableClock{now: now}
	store := NewStore(db)
	return &fixture{
		db:       db,
		store:    store,
		svc:      NewService(store, devices, holiday.New(), clk, log, nil),
		clock:    clk,
		deviceID: added.Device.ID,
		logs:     hook,
	}
}

func (f *fixture) create(t *testing.T, p CreateParams) int64 {
	t.Helper()
	if p.DeviceID == 0 && p.DeviceMAC == "" {
		p.DeviceMAC = testMAC
	}
	res, err := f.svc.Create(context.Background(), p)
	require.NoError(t, err)
	return res.ReminderID
}

func TestCreateRollsOverToTomorrow(t *testing.T) {
	f := newFixture(t, at("2026-01-17T10:00:00"))

	res, err := f.svc.Create(context.Background(), CreateParams{
		DeviceMAC:     testMAC,
		Content:       "take medicine",
		Type:          TypeOnce,
		ScheduledTime: "08:00",
	})
	require.NoError(t, err)
	require.NotNil(t, res.NextTriggerAt)
	assert.Equal(t, at("2026-01-18T08:00:00").Unix(), *res.NextTriggerAt)

	r, err := f.store.Get(context.Background(), res.ReminderID)
	require.NoError(t, err)
	assert.Equal(t, *res.NextTriggerAt, *r.ScheduledTimestamp)
	assert.Equal(t, StatusActive, r.Status)
	assert.Equal(t, f.deviceID, r.DeviceID)
}

func TestCreateLaterToday(t *testing.T) {
	f := newFixture(t, at("2026-01-17T10:00:00"))

	res, err := f.svc.Create(context.Background(), CreateParams{
		DeviceID:      f.deviceID,
		Content:       "call mom",
		ScheduledTime: "14:30",
	})
	require.NoError(t, err)
	require.NotNil(t, res.NextTriggerAt)
	assert.Equal(t, at("2026-01-17T14:30:00").Unix(), *res.NextTriggerAt)
}

func TestCreateRejectsMalformedTime(t *testing.T) {
	f := newFixture(t, at("2026-01-17T10:00:00"))

	_, err := f.svc.Create(context.Background(), CreateParams{
		DeviceMAC:     testMAC,
		Content:       "bad",
		Type:          TypeOnce,
		ScheduledTime: "25:99",
	})
	assert.ErrorIs(t, err, ErrInvalidTimeOfDay)

	n, err := f.store.Count(context.Background(), 0, statusAll)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t, at("2026-01-17T10:00:00"))
	ctx := context.Background()

	_, err := f.svc.Create(ctx, CreateParams{Content: "x", ScheduledTime: "08:00"})
	assert.ErrorIs(t, err, ErrDeviceRequired)

	_, err = f.svc.Create(ctx, CreateParams{DeviceMAC: testMAC, Content: "  ", ScheduledTime: "08:00"})
	assert.ErrorIs(t, err, ErrContentRequired)

	_, err = f.svc.Create(ctx, CreateParams{DeviceMAC: testMAC, Content: "x", Type: "weekly", ScheduledTime: "08:00"})
	assert.ErrorIs(t, err, ErrInvalidType)

	_, err = f.svc.Create(ctx, CreateParams{DeviceMAC: "11:22:33:44:55:66", Content: "x", ScheduledTime: "08:00"})
	assert.ErrorIs(t, err, device.ErrDeviceNotFound)

	_, err = f.svc.Create(ctx, CreateParams{DeviceID: 999, Content: "x", ScheduledTime: "08:00"})
	assert.ErrorIs(t, err, device.ErrDeviceNotFound)
	assert.True(t, IsNotFound(err))
}

func TestCreateDailyAndExplicitTimestamp(t *testing.T) {
	f := newFixture(t, at("2026-01-17T10:00:00"))
	ctx := context.Background()

	res, err := f.svc.Create(ctx, CreateParams{DeviceMAC: testMAC, Content: "stretch", Type: TypeDaily, ScheduledTime: "7:30"})
	require.NoError(t, err)
	assert.Nil(t, res.NextTriggerAt)

	r, err := f.store.Get(ctx, res.ReminderID)
	require.NoError(t, err)
	assert.Nil(t, r.ScheduledTimestamp)
	assert.Equal(t, "07:30", r.ScheduledTime)

	explicit := at("2026-02-01T09:00:00").Unix()
	res, err = f.svc.Create(ctx, CreateParams{DeviceMAC: testMAC, Content: "dentist", ScheduledTime: "09:00", ScheduledTimestamp: &explicit})
	require.NoError(t, err)
	assert.Equal(t, explicit, *res.NextTriggerAt)
}

func TestCreateFlagsHoliday(t *testing.T) {
	f := newFixture(t, at("2026-09-30T20:00:00"))

	res, err := f.svc.Create(context.Background(), CreateParams{
		DeviceMAC:     testMAC,
		Content:       "standup",
		Type:          TypeDaily,
		ScheduledTime: "09:00",
		SkipHolidays:  true,
	})
	require.NoError(t, err)
	assert.True(t, res.FallsOnHoliday)
	assert.Equal(t, "国庆节", res.HolidayName)

	res, err = f.svc.Create(context.Background(), CreateParams{
		DeviceMAC:     testMAC,
		Content:       "standup",
		ScheduledTime: "21:00",
		SkipHolidays:  true,
	})
	require.NoError(t, err)
	assert.False(t, res.FallsOnHoliday)
}

func TestListExpiresOverdueOneShot(t *testing.T) {
	f := newFixture(t, at("2026-01-17T07:00:00"))
	ctx := context.Background()

	overdue := f.create(t, CreateParams{Content: "pills", ScheduledTime: "08:00"})
	later := f.create(t, CreateParams{Content: "lunch", ScheduledTime: "12:00"})
	daily := f.create(t, CreateParams{Content: "water", Type: TypeDaily, ScheduledTime: "08:00"})

	f.clock.now = at("2026-01-17T09:00:00")

	res, err := f.svc.List(ctx, ListFilter{DeviceMAC: testMAC})
	require.NoError(t, err)

	var ids []int64
	for _, r := range res.Reminders {
		ids = append(ids, r.ID)
	}
	assert.ElementsMatch(t, []int64{later, daily}, ids)
	assert.NotContains(t, ids, overdue)
	assert.Equal(t, 2, res.TotalCount)
	assert.Equal(t, 2, res.ActiveCount)
	assert.Equal(t, defaultListLimit, res.Limit)

	r, err := f.store.Get(ctx, overdue)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, r.Status)
	require.NotNil(t, r.CompletedAt)
	assert.True(t, r.CompletedAt.Equal(f.clock.now))

	// A second pass finds nothing new to expire.
	again, err := f.svc.List(ctx, ListFilter{DeviceMAC: testMAC})
	require.NoError(t, err)
	assert.Equal(t, res.Reminders, again.Reminders)

	r2, err := f.store.Get(ctx, overdue)
	require.NoError(t, err)
	assert.Equal(t, r.CompletedAt, r2.CompletedAt)
}

func TestListStatusFilterAndPaging(t *testing.T) {
	f := newFixture(t, at("2026-01-17T07:00:00"))
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		f.clock.now = f.clock.now.Add(time.Minute)
		f.create(t, CreateParams{Content: "r", ScheduledTime: "20:00"})
	}
	cancelled := f.create(t, CreateParams{Content: "gone", ScheduledTime: "20:00"})
	require.NoError(t, f.svc.Cancel(ctx, cancelled))

	page, err := f.svc.List(ctx, ListFilter{Limit: 2, Offset: 1})
	require.NoError(t, err)
	assert.Len(t, page.Reminders, 2)
	assert.Equal(t, 5, page.TotalCount)

	all, err := f.svc.List(ctx, ListFilter{Status: "all", Limit: 1000})
	require.NoError(t, err)
	assert.Len(t, all.Reminders, 6)
	assert.Equal(t, maxListLimit, all.Limit)

	done, err := f.svc.List(ctx, ListFilter{Status: "cancelled"})
	require.NoError(t, err)
	require.Len(t, done.Reminders, 1)
	assert.Equal(t, cancelled, done.Reminders[0].ID)

	_, err = f.svc.List(ctx, ListFilter{Status: "snoozed"})
	assert.ErrorIs(t, err, ErrInvalidStatus)

	_, err = f.svc.List(ctx, ListFilter{DeviceMAC: "11:22:33:44:55:66"})
	assert.ErrorIs(t, err, device.ErrDeviceNotFound)
}

func TestUpdateRecomputesWithoutRollover(t *testing.T) {
	f := newFixture(t, at("2026-01-17T07:00:00"))
	ctx := context.Background()
	id := f.create(t, CreateParams{Content: "pills", ScheduledTime: "20:00"})

	f.clock.now = at("2026-01-17T10:00:00")
	r, err := f.svc.Update(ctx, id, UpdateFields{ScheduledTime: ptr("8:00"), Content: ptr(" vitamins ")})
	require.NoError(t, err)

	assert.Equal(t, "08:00", r.ScheduledTime)
	assert.Equal(t, "vitamins", r.Content)
	require.NotNil(t, r.ScheduledTimestamp)
	assert.Equal(t, at("2026-01-17T08:00:00").Unix(), *r.ScheduledTimestamp)
	require.NotNil(t, r.UpdatedAt)

	// The past timestamp is picked up by the next list.
	res, err := f.svc.List(ctx, ListFilter{DeviceID: f.deviceID})
	require.NoError(t, err)
	assert.Empty(t, res.Reminders)
}

func TestUpdateValidation(t *testing.T) {
	f := newFixture(t, at("2026-01-17T07:00:00"))
	ctx := context.Background()
	id := f.create(t, CreateParams{Content: "pills", ScheduledTime: "20:00"})

	_, err := f.svc.Update(ctx, id, UpdateFields{})
	assert.ErrorIs(t, err, ErrNoFieldsToUpdate)

	_, err = f.svc.Update(ctx, id, UpdateFields{ScheduledTime: ptr("25:99")})
	assert.ErrorIs(t, err, ErrInvalidTimeOfDay)

	_, err = f.svc.Update(ctx, id, UpdateFields{Status: ptr(Status("paused"))})
	assert.ErrorIs(t, err, ErrInvalidStatus)

	_, err = f.svc.Update(ctx, 404, UpdateFields{Content: ptr("x")})
	assert.ErrorIs(t, err, ErrReminderNotFound)
}

func TestStatusTransitions(t *testing.T) {
	f := newFixture(t, at("2026-01-17T07:00:00"))
	ctx := context.Background()

	viaUpdate := f.create(t, CreateParams{Content: "a", ScheduledTime: "20:00"})
	r, err := f.svc.Update(ctx, viaUpdate, UpdateFields{Status: ptr(StatusCompleted)})
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, r.Status)
	assert.NotNil(t, r.CompletedAt)

	_, err = f.svc.Update(ctx, viaUpdate, UpdateFields{Status: ptr(StatusActive)})
	assert.ErrorIs(t, err, ErrInvalidTransition)
	_, err = f.svc.Update(ctx, viaUpdate, UpdateFields{Status: ptr(StatusCancelled)})
	assert.ErrorIs(t, err, ErrInvalidTransition)

	completed := f.create(t, CreateParams{Content: "b", ScheduledTime: "20:00"})
	require.NoError(t, f.svc.Complete(ctx, completed, ptr("done early")))
	assert.ErrorIs(t, f.svc.Complete(ctx, completed, nil), ErrInvalidTransition)
	assert.ErrorIs(t, f.svc.Cancel(ctx, completed), ErrInvalidTransition)

	d, err := f.svc.Get(ctx, completed)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, d.Status)
	require.NotNil(t, d.Notes)
	assert.Equal(t, "done early", *d.Notes)
	assert.Equal(t, "desk bot", d.DeviceName)
	assert.Equal(t, testMAC, d.DeviceMAC)

	cancelled := f.create(t, CreateParams{Content: "c", ScheduledTime: "20:00"})
	require.NoError(t, f.svc.Cancel(ctx, cancelled))
	assert.ErrorIs(t, f.svc.Complete(ctx, cancelled, nil), ErrInvalidTransition)

	assert.ErrorIs(t, f.svc.Complete(ctx, 404, nil), ErrReminderNotFound)
}

func TestDeleteAndStats(t *testing.T) {
	f := newFixture(t, at("2026-01-17T07:00:00"))
	ctx := context.Background()

	a := f.create(t, CreateParams{Content: "a", ScheduledTime: "20:00"})
	f.create(t, CreateParams{Content: "b", ScheduledTime: "21:00"})
	c := f.create(t, CreateParams{Content: "c", ScheduledTime: "22:00"})

	require.NoError(t, f.svc.Complete(ctx, a, nil))
	require.NoError(t, f.svc.Delete(ctx, c))
	assert.ErrorIs(t, f.svc.Delete(ctx, c), ErrReminderNotFound)

	st, err := f.svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, Stats{Active: 1, CompletedToday: 1}, *st)

	f.clock.now = at("2026-01-18T06:00:00")
	st, err = f.svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, st.CompletedToday)
}

func TestSweepExpired(t *testing.T) {
	f := newFixture(t, at("2026-01-17T07:00:00"))
	ctx := context.Background()

	overdue := f.create(t, CreateParams{Content: "a", ScheduledTime: "08:00"})
	f.create(t, CreateParams{Content: "b", ScheduledTime: "20:00"})
	f.create(t, CreateParams{Content: "c", Type: TypeDaily, ScheduledTime: "08:00"})

	f.clock.now = at("2026-01-17T09:00:00")
	n, err := f.svc.SweepExpired(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	n, err = f.svc.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	r, err := f.store.Get(ctx, overdue)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, r.Status)

	require.NotNil(t, f.logs.LastEntry())
}

var _ clock.Clock = (*movableClock)(nil)

func TestStatusUpdateLosesToConcurrentExpiry(t *testing.T) {
	f := newFixture(t, at("2026-01-17T07:00:00"))
	ctx := context.Background()

	id := f.create(t, CreateParams{Content: "water plants", ScheduledTime: "08:00"})

	// the row is expired between the service's read and its write
	n, err := f.store.Expire(ctx, []int64{id}, f.clock.now)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	cancelled := StatusCancelled
	err = f.store.Update(ctx, id, storedUpdate{
		UpdateFields: UpdateFields{Status: &cancelled},
		CompletedAt:  &f.clock.now,
	}, f.clock.now)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	r, err := f.store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, r.Status)

	err = f.store.Update(ctx, 999, storedUpdate{UpdateFields: UpdateFields{Status: &cancelled}}, f.clock.now)
	assert.ErrorIs(t, err, ErrReminderNotFound)
}

func TestUpdateSameTerminalStatusIsNoop(t *testing.T) {
	f := newFixture(t, at("2026-01-17T07:00:00"))
	ctx := context.Background()

	id := f.create(t, CreateParams{Content: "a", ScheduledTime: "20:00"})
	require.NoError(t, f.svc.Complete(ctx, id, nil))

	r, err := f.svc.Update(ctx, id, UpdateFields{Status: ptr(StatusCompleted), Content: ptr("renamed")})
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, r.Status)
	assert.Equal(t, "renamed", r.Content)
}

func TestCreateDailyIgnoresExplicitTimestampInResult(t *testing.T) {
	f := newFixture(t, at("2026-01-17T10:00:00"))

	explicit := at("2026-02-01T09:00:00").Unix()
	res, err := f.svc.Create(context.Background(), CreateParams{
		DeviceMAC:          testMAC,
		Content:            "stretch",
		Type:               TypeDaily,
		ScheduledTime:      "09:00",
		ScheduledTimestamp: &explicit,
	})
	require.NoError(t, err)
	assert.Nil(t, res.NextTriggerAt)
}

func TestCreateZeroTimestampIsDerived(t *testing.T) {
	f := newFixture(t, at("2026-01-17T10:00:00"))
	ctx := context.Background()

	zero := int64(0)
	res, err := f.svc.Create(ctx, CreateParams{DeviceMAC: testMAC, Content: "lunch", ScheduledTime: "12:00", ScheduledTimestamp: &zero})
	require.NoError(t, err)
	require.NotNil(t, res.NextTriggerAt)
	assert.Equal(t, at("2026-01-17T12:00:00").Unix(), *res.NextTriggerAt)

	list, err := f.svc.List(ctx, ListFilter{DeviceMAC: testMAC})
	require.NoError(t, err)
	assert.Equal(t, 1, list.ActiveCount)
}
