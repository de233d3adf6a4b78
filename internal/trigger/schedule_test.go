package trigger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dwsmith1983/buildwatch/internal/clock"
	"github.com/dwsmith1983/buildwatch/pkg/types"
)

func TestSchedule_NextMondayFromTuesday(t *testing.T) {
	tuesday := monday.AddDate(0, 0, 1)
	clk := clock.NewFake(at(tuesday, 7, 0))
	s, err := NewSchedule(ScheduleConfig{
		Time:     TimeOfDay{Hour: 8},
		WeekDays: types.NewWeekdaySet(time.Monday),
	}, clk)
	require.NoError(t, err)

	assert.Equal(t, at(monday.AddDate(0, 0, 7), 8, 0), s.NextBuild())
	assert.Nil(t, fire(t, s))
}

func TestSchedule_FiresOnceThenMovesToNextPermittedDay(t *testing.T) {
	clk := clock.NewFake(at(monday, 7, 0))
	s, err := NewSchedule(ScheduleConfig{
		Name:     "nightly",
		Time:     TimeOfDay{Hour: 8},
		WeekDays: types.NewWeekdaySet(time.Monday),
	}, clk)
	require.NoError(t, err)
	assert.Equal(t, at(monday, 8, 0), s.NextBuild())

	clk.Set(at(monday, 8, 0))
	assert.Nil(t, fire(t, s), "fires only once now is strictly after the build time")

	clk.Set(at(monday, 8, 1))
	req := fire(t, s)
	require.NotNil(t, req)
	assert.Equal(t, "nightly", req.SourceName)
	assert.Equal(t, types.IfModificationExists, req.BuildCondition)
	assert.Equal(t, req, fire(t, s), "pending request is reported until completion")

	clk.Set(at(monday, 8, 30))
	s.IntegrationCompleted()
	assert.Equal(t, at(monday.AddDate(0, 0, 7), 8, 0), s.NextBuild())
	assert.Nil(t, fire(t, s))
}

func TestSchedule_NoSameDayRefire(t *testing.T) {
	clk := clock.NewFake(at(monday, 7, 0))
	s, err := NewSchedule(ScheduleConfig{Time: TimeOfDay{Hour: 8}}, clk)
	require.NoError(t, err)

	clk.Set(at(monday, 8, 5))
	require.NotNil(t, fire(t, s))
	s.IntegrationCompleted()

	assert.Equal(t, at(monday.AddDate(0, 0, 1), 8, 0), s.NextBuild())
}

func TestSchedule_BuildCrossingMidnightKeepsNextDay(t *testing.T) {
	clk := clock.NewFake(at(monday, 23, 0))
	s, err := NewSchedule(ScheduleConfig{Time: TimeOfDay{Hour: 23, Minute: 30}}, clk)
	require.NoError(t, err)

	clk.Set(at(monday, 23, 31))
	require.NotNil(t, fire(t, s))

	tuesday := monday.AddDate(0, 0, 1)
	clk.Set(at(tuesday, 0, 15))
	s.IntegrationCompleted()
	assert.Equal(t, at(tuesday, 23, 30), s.NextBuild())

	clk.Set(at(tuesday, 23, 31))
	assert.NotNil(t, fire(t, s), "tuesday's build still runs")
}

func TestSchedule_CompletionWithoutFireKeepsNextBuild(t *testing.T) {
	clk := clock.NewFake(at(monday, 7, 0))
	s, err := NewSchedule(ScheduleConfig{Time: TimeOfDay{Hour: 8}}, clk)
	require.NoError(t, err)

	clk.Set(at(monday, 7, 30))
	s.IntegrationCompleted()
	assert.Equal(t, at(monday, 8, 0), s.NextBuild())
}

func TestSchedule_MissedDayDoesNotFireOnForbiddenDay(t *testing.T) {
	clk := clock.NewFake(at(monday, 7, 0))
	s, err := NewSchedule(ScheduleConfig{
		Time:     TimeOfDay{Hour: 8},
		WeekDays: types.NewWeekdaySet(time.Monday),
	}, clk)
	require.NoError(t, err)

	clk.Set(at(monday.AddDate(0, 0, 1), 9, 0))
	assert.Nil(t, fire(t, s))
}

func TestSchedule_RandomOffset(t *testing.T) {
	clk := clock.NewFake(at(monday, 7, 0))
	var asked int
	s, err := NewSchedule(ScheduleConfig{
		Time:                TimeOfDay{Hour: 8, Minute: 10},
		RandomOffsetMinutes: 20,
		Random: func(n int) int {
			asked = n
			return n - 1
		},
	}, clk)
	require.NoError(t, err)

	assert.Equal(t, 20, asked)
	assert.Equal(t, at(monday, 8, 29), s.NextBuild())
}

func TestSchedule_Validation(t *testing.T) {
	clk := clock.NewFake(monday)

	_, err := NewSchedule(ScheduleConfig{Time: TimeOfDay{Hour: 8, Minute: 50}, RandomOffsetMinutes: 10}, clk)
	require.Error(t, err)
	assert.True(t, IsConfigError(err))

	_, err = NewSchedule(ScheduleConfig{Time: TimeOfDay{Hour: 8}, RandomOffsetMinutes: -1}, clk)
	assert.True(t, IsConfigError(err))

	_, err = NewSchedule(ScheduleConfig{Time: TimeOfDay{Hour: 8, Minute: 50}, RandomOffsetMinutes: 9}, clk)
	assert.NoError(t, err)
}

func TestSchedule_Timezone(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*60*60)
	// 22:00 UTC Monday is 07:00 Tuesday in Tokyo
	clk := clock.NewFake(at(monday, 22, 0))
	s, err := NewSchedule(ScheduleConfig{
		Time:     TimeOfDay{Hour: 8},
		WeekDays: types.NewWeekdaySet(time.Tuesday),
		Location: tokyo,
	}, clk)
	require.NoError(t, err)

	assert.True(t, at(monday, 23, 0).Equal(s.NextBuild()), "got %s", s.NextBuild())
}
