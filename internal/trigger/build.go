package trigger

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/dwsmith1983/buildwatch/internal/clock"
	"github.com/dwsmith1983/buildwatch/internal/remote"
	"github.com/dwsmith1983/buildwatch/pkg/types"
)

// CalendarLookup resolves named weekday calendars.
type CalendarLookup interface {
	Get(name string) *types.Calendar
}

// Deps are the collaborators a trigger tree may need.
type Deps struct {
	Clock     clock.Clock           // default clock.System
	Logger    *slog.Logger          // default slog.Default()
	Managers  remote.ManagerFactory // required by project triggers
	Probe     remote.Probe          // required by url triggers
	Calendars CalendarLookup
	Random    func(n int) int // schedule offset source; nil means math/rand
}

// Build constructs the trigger tree described by cfg. Every error is, or
// wraps, a *ConfigError.
func Build(cfg types.TriggerConfig, deps Deps) (Trigger, error) {
	if deps.Clock == nil {
		deps.Clock = clock.System{}
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return build(cfg, deps)
}

func build(cfg types.TriggerConfig, deps Deps) (Trigger, error) {
	name := nameOr(cfg.Name, cfg.Type)
	switch cfg.Type {
	case types.TriggerInterval:
		return buildInterval(cfg, name, deps)
	case types.TriggerSchedule:
		return buildSchedule(cfg, name, deps)
	case types.TriggerCron:
		return buildCron(cfg, name, deps)
	case types.TriggerURL:
		return buildURL(cfg, name, deps)
	case types.TriggerFilter:
		return buildFilter(cfg, name, deps)
	case types.TriggerParameter:
		inner, err := buildInner(cfg, name, deps)
		if err != nil {
			return nil, err
		}
		return NewParameter(inner, cfg.Parameters)
	case types.TriggerRollUp:
		inner, err := buildInner(cfg, name, deps)
		if err != nil {
			return nil, err
		}
		if cfg.MinimumTime.IsZero() {
			return nil, configErr(name, "minimumTime", "is required")
		}
		return NewRollUp(inner, cfg.MinimumTime.Duration(), deps.Clock)
	case types.TriggerMultiple:
		return buildMultiple(cfg, name, deps)
	case types.TriggerProject:
		return buildProject(cfg, name, deps)
	case "":
		return nil, configErr("unnamed", "type", "is required")
	default:
		return nil, configErr(name, "type", "unknown trigger type %q", cfg.Type)
	}
}

func buildInner(cfg types.TriggerConfig, name string, deps Deps) (Trigger, error) {
	if cfg.Trigger == nil {
		return nil, configErr(name, "trigger", "inner trigger is required")
	}
	inner, err := build(*cfg.Trigger, deps)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return inner, nil
}

func buildInterval(cfg types.TriggerConfig, name string, deps Deps) (Trigger, error) {
	cond, err := condition(cfg, name, types.IfModificationExists)
	if err != nil {
		return nil, err
	}
	return NewInterval(IntervalConfig{
		Name:           name,
		Interval:       seconds(cfg.Seconds),
		InitialDelay:   seconds(cfg.InitialSeconds),
		BuildCondition: cond,
	}, deps.Clock)
}

func buildSchedule(cfg types.TriggerConfig, name string, deps Deps) (Trigger, error) {
	if cfg.Time == "" {
		return nil, configErr(name, "time", "is required")
	}
	at, err := ParseTimeOfDay(cfg.Time)
	if err != nil {
		return nil, configErr(name, "time", "%v", err)
	}
	cond, err := condition(cfg, name, types.IfModificationExists)
	if err != nil {
		return nil, err
	}
	loc, err := location(cfg, name)
	if err != nil {
		return nil, err
	}
	days, err := weekDays(cfg, name, deps)
	if err != nil {
		return nil, err
	}
	return NewSchedule(ScheduleConfig{
		Name:                name,
		Time:                at,
		WeekDays:            days,
		RandomOffsetMinutes: cfg.RandomOffSetInMinutesFromTime,
		BuildCondition:      cond,
		Location:            loc,
		Random:              deps.Random,
	}, deps.Clock)
}

func buildCron(cfg types.TriggerConfig, name string, deps Deps) (Trigger, error) {
	cond, err := condition(cfg, name, types.IfModificationExists)
	if err != nil {
		return nil, err
	}
	loc, err := location(cfg, name)
	if err != nil {
		return nil, err
	}
	start, err := parseDate(cfg.StartDate, loc)
	if err != nil {
		return nil, configErr(name, "startDate", "%v", err)
	}
	end, err := parseDate(cfg.EndDate, loc)
	if err != nil {
		return nil, configErr(name, "endDate", "%v", err)
	}
	return NewCron(CronConfig{
		Name:           name,
		Expression:     cfg.CronExpression,
		StartDate:      start,
		EndDate:        end,
		BuildCondition: cond,
		Location:       loc,
	}, deps.Clock)
}

func buildURL(cfg types.TriggerConfig, name string, deps Deps) (Trigger, error) {
	cond, err := condition(cfg, name, types.IfModificationExists)
	if err != nil {
		return nil, err
	}
	return NewURL(URLConfig{
		Name:           name,
		URL:            cfg.URL,
		Interval:       seconds(cfg.Seconds),
		InitialDelay:   seconds(cfg.InitialSeconds),
		BuildCondition: cond,
	}, deps.Probe, deps.Clock, deps.Logger)
}

func buildFilter(cfg types.TriggerConfig, name string, deps Deps) (Trigger, error) {
	inner, err := buildInner(cfg, name, deps)
	if err != nil {
		return nil, err
	}
	if cfg.StartTime == "" || cfg.EndTime == "" {
		return nil, configErr(name, "startTime", "startTime and endTime are required")
	}
	start, err := ParseTimeOfDay(cfg.StartTime)
	if err != nil {
		return nil, configErr(name, "startTime", "%v", err)
	}
	end, err := ParseTimeOfDay(cfg.EndTime)
	if err != nil {
		return nil, configErr(name, "endTime", "%v", err)
	}
	cond, err := condition(cfg, name, types.NoBuild)
	if err != nil {
		return nil, err
	}
	loc, err := location(cfg, name)
	if err != nil {
		return nil, err
	}
	days, err := weekDays(cfg, name, deps)
	if err != nil {
		return nil, err
	}
	return NewFilter(inner, FilterConfig{
		Name:           name,
		StartTime:      start,
		EndTime:        end,
		WeekDays:       days,
		BuildCondition: cond,
		Location:       loc,
	}, deps.Clock)
}

func buildMultiple(cfg types.TriggerConfig, name string, deps Deps) (Trigger, error) {
	op, err := types.ParseOperator(cfg.Operator)
	if err != nil {
		return nil, configErr(name, "operator", "%v", err)
	}
	children := make([]Trigger, 0, len(cfg.Triggers))
	for i, c := range cfg.Triggers {
		child, err := build(c, deps)
		if err != nil {
			return nil, fmt.Errorf("%s: triggers[%d]: %w", name, i, err)
		}
		children = append(children, child)
	}
	return NewMultiple(op, children...)
}

func buildProject(cfg types.TriggerConfig, name string, deps Deps) (Trigger, error) {
	status, err := types.ParseIntegrationStatus(cfg.TriggerStatus)
	if err != nil {
		return nil, configErr(name, "triggerStatus", "%v", err)
	}
	var inner Trigger
	if cfg.Trigger != nil {
		if inner, err = buildInner(cfg, name, deps); err != nil {
			return nil, err
		}
	}
	return NewProject(ProjectConfig{
		Name:             name,
		Project:          cfg.Project,
		ServerURI:        cfg.ServerURI,
		TriggerStatus:    status,
		TriggerFirstTime: cfg.TriggerFirstTime,
	}, inner, deps.Managers, deps.Clock, deps.Logger)
}

func condition(cfg types.TriggerConfig, name string, def types.BuildCondition) (types.BuildCondition, error) {
	c, err := types.ParseBuildCondition(cfg.BuildCondition, def)
	if err != nil {
		return "", configErr(name, "buildCondition", "%v", err)
	}
	return c, nil
}

func location(cfg types.TriggerConfig, name string) (*time.Location, error) {
	loc, err := loadLocation(cfg.Timezone)
	if err != nil {
		return nil, configErr(name, "timezone", "%v", err)
	}
	return loc, nil
}

// weekDays resolves the permitted days from the inline list or a named
// calendar. Setting both is an error.
func weekDays(cfg types.TriggerConfig, name string, deps Deps) (types.WeekdaySet, error) {
	if cfg.WeekDaysCalendar == "" {
		return cfg.WeekDays, nil
	}
	if cfg.WeekDays != 0 {
		return 0, configErr(name, "weekDaysCalendar", "cannot be combined with weekDays")
	}
	if deps.Calendars == nil {
		return 0, configErr(name, "weekDaysCalendar", "no calendars loaded")
	}
	cal := deps.Calendars.Get(cfg.WeekDaysCalendar)
	if cal == nil {
		return 0, configErr(name, "weekDaysCalendar", "unknown calendar %q", cfg.WeekDaysCalendar)
	}
	days, err := types.ParseWeekdays(cal.Days)
	if err != nil {
		return 0, configErr(name, "weekDaysCalendar", "calendar %q: %v", cal.Name, err)
	}
	return days, nil
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// parseDate accepts "2006-01-02" (midnight in loc) or RFC 3339.
func parseDate(s string, loc *time.Location) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if loc == nil {
		loc = time.Local
	}
	if t, err := time.ParseInLocation(time.DateOnly, s, loc); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD or RFC 3339", s)
	}
	return t, nil
}
