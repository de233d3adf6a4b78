package trigger

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/dwsmith1983/buildwatch/internal/clock"
	"github.com/dwsmith1983/buildwatch/internal/testutil"
	"github.com/dwsmith1983/buildwatch/pkg/types"
)

type calendars map[string]*types.Calendar

func (c calendars) Get(name string) *types.Calendar { return c[name] }

func testDeps(clk clock.Clock) Deps {
	return Deps{
		Clock:    clk,
		Logger:   discardLogger(),
		Managers: testutil.NewMockStatusStore(),
		Probe:    &testutil.MockProbe{},
		Calendars: calendars{
			"weekend": {Name: "weekend", Days: []string{"saturday", "sunday"}},
			"broken":  {Name: "broken", Days: []string{"someday"}},
		},
	}
}

func parseTrigger(t *testing.T, doc string) types.TriggerConfig {
	t.Helper()
	var cfg types.TriggerConfig
	require.NoError(t, yaml.Unmarshal([]byte(doc), &cfg))
	return cfg
}

func TestBuild_Tree(t *testing.T) {
	cfg := parseTrigger(t, `
type: multiple
operator: and
triggers:
  - type: filter
    startTime: "22:00"
    endTime: "06:00"
    weekDaysCalendar: weekend
    trigger:
      type: interval
      seconds: 30
      buildCondition: forceBuild
  - type: rollup
    minimumTime: 1h
    trigger:
      type: schedule
      name: nightly
      time: "08:00"
      weekDays: [monday]
  - type: parameter
    parameters: {env: prod}
    trigger:
      type: cron
      cronExpression: "0 * * * *"
      timezone: Europe/London
  - type: project
    project: core
    serverUri: http://build:8080
    triggerStatus: failure
  - type: url
    url: http://example.com/feed
    seconds: 120
`)

	trig, err := Build(cfg, testDeps(clock.NewFake(at(monday, 7, 0))))
	require.NoError(t, err)

	m, ok := trig.(*Multiple)
	require.True(t, ok)
	assert.Equal(t, types.OperatorAnd, m.Operator())
	require.Len(t, m.triggers, 5)

	f := m.triggers[0].(*Filter)
	assert.Equal(t, types.NewWeekdaySet(time.Saturday, time.Sunday), f.weekDays)
	assert.Equal(t, types.NoBuild, f.condition)
	iv := f.inner.(*Interval)
	assert.Equal(t, 30*time.Second, iv.Interval())
	assert.Equal(t, types.ForceBuild, iv.condition)

	r := m.triggers[1].(*RollUp)
	assert.Equal(t, time.Hour, r.minimumTime)
	s := r.inner.(*Schedule)
	assert.Equal(t, "nightly", s.name)
	assert.Equal(t, at(monday, 8, 0), s.NextBuild())

	p := m.triggers[2].(*Parameter)
	assert.Equal(t, map[string]string{"env": "prod"}, p.values)
	c := p.inner.(*Cron)
	require.NotNil(t, c.loc)
	assert.Equal(t, "Europe/London", c.loc.String())

	pr := m.triggers[3].(*Project)
	assert.Equal(t, "core", pr.project)
	assert.Equal(t, "http://build:8080", pr.serverURI)
	assert.Equal(t, types.StatusFailure, pr.triggerStatus)

	u := m.triggers[4].(*URL)
	assert.Equal(t, 2*time.Minute, u.Interval.Interval())
}

func TestBuild_ProjectInnerTrigger(t *testing.T) {
	cfg := parseTrigger(t, `
type: project
project: core
trigger: {type: interval, seconds: 10}
`)
	trig, err := Build(cfg, testDeps(clock.NewFake(monday)))
	require.NoError(t, err)
	p := trig.(*Project)
	assert.Equal(t, 10*time.Second, p.inner.(*Interval).Interval())
}

func TestBuild_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"missing type", `name: x`},
		{"unknown type", `type: lunar`},
		{"schedule without time", `type: schedule`},
		{"bad time", `{type: schedule, time: "25:00"}`},
		{"offset past the hour", `{type: schedule, time: "08:45", randomOffSetInMinutesFromTime: 15}`},
		{"bad condition", `{type: interval, buildCondition: sometimes}`},
		{"bad cron", `{type: cron, cronExpression: "every day"}`},
		{"bad start date", `{type: cron, cronExpression: "* * * * *", startDate: "tomorrow"}`},
		{"bad timezone", `{type: schedule, time: "08:00", timezone: Mars/Olympus}`},
		{"unknown calendar", `{type: schedule, time: "08:00", weekDaysCalendar: holidays}`},
		{"invalid calendar", `{type: schedule, time: "08:00", weekDaysCalendar: broken}`},
		{"calendar and weekDays", `{type: schedule, time: "08:00", weekDays: [monday], weekDaysCalendar: weekend}`},
		{"filter without inner", `{type: filter, startTime: "22:00", endTime: "06:00"}`},
		{"filter without window", `{type: filter, trigger: {type: interval}}`},
		{"rollup without minimumTime", `{type: rollup, trigger: {type: interval}}`},
		{"bad operator", `{type: multiple, operator: xor}`},
		{"bad child", `{type: multiple, triggers: [{type: interval}, {type: cron}]}`},
		{"project without name", `{type: project}`},
		{"bad trigger status", `{type: project, project: core, triggerStatus: green}`},
		{"url without url", `{type: url}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Build(parseTrigger(t, tt.doc), testDeps(clock.NewFake(monday)))
			require.Error(t, err)
			assert.True(t, IsConfigError(err), "got %v", err)
		})
	}
}

func TestBuild_URLNeedsProbe(t *testing.T) {
	deps := testDeps(clock.NewFake(monday))
	deps.Probe = nil
	_, err := Build(parseTrigger(t, `{type: url, url: "http://x"}`), deps)
	assert.True(t, IsConfigError(err))
}

func TestBuild_DefaultsClock(t *testing.T) {
	trig, err := Build(types.TriggerConfig{Type: types.TriggerInterval}, Deps{})
	require.NoError(t, err)
	assert.False(t, trig.NextBuild().IsZero())
}

func TestParseDate(t *testing.T) {
	d, err := parseDate("2026-03-02", time.UTC)
	require.NoError(t, err)
	assert.Equal(t, monday, d)

	d, err = parseDate("2026-03-02T08:00:00Z", nil)
	require.NoError(t, err)
	assert.True(t, at(monday, 8, 0).Equal(d))

	d, err = parseDate("", nil)
	require.NoError(t, err)
	assert.True(t, d.IsZero())
}
