package types

// TriggerConfig is the parsed, declarative description of one node of a
// trigger tree. Which fields apply depends on Type.
type TriggerConfig struct {
	Type           TriggerType `yaml:"type" json:"type"`
	Name           string      `yaml:"name,omitempty" json:"name,omitempty"`
	BuildCondition string      `yaml:"buildCondition,omitempty" json:"buildCondition,omitempty"`
	Timezone       string      `yaml:"timezone,omitempty" json:"timezone,omitempty"` // e.g. "Europe/London"

	// interval, url
	Seconds        float64 `yaml:"seconds,omitempty" json:"seconds,omitempty"`
	InitialSeconds float64 `yaml:"initialSeconds,omitempty" json:"initialSeconds,omitempty"`
	URL            string  `yaml:"url,omitempty" json:"url,omitempty"`

	// schedule
	Time                          string `yaml:"time,omitempty" json:"time,omitempty"` // "HH:MM"
	RandomOffSetInMinutesFromTime int    `yaml:"randomOffSetInMinutesFromTime,omitempty" json:"randomOffSetInMinutesFromTime,omitempty"`

	// schedule, filter
	WeekDays         WeekdaySet `yaml:"weekDays,omitempty" json:"weekDays,omitempty"`
	WeekDaysCalendar string     `yaml:"weekDaysCalendar,omitempty" json:"weekDaysCalendar,omitempty"`

	// cron
	CronExpression string `yaml:"cronExpression,omitempty" json:"cronExpression,omitempty"`
	StartDate      string `yaml:"startDate,omitempty" json:"startDate,omitempty"` // "2006-01-02" or RFC 3339
	EndDate        string `yaml:"endDate,omitempty" json:"endDate,omitempty"`

	// filter
	StartTime string `yaml:"startTime,omitempty" json:"startTime,omitempty"`
	EndTime   string `yaml:"endTime,omitempty" json:"endTime,omitempty"`

	// rollup
	MinimumTime Timeout `yaml:"minimumTime,omitempty" json:"minimumTime,omitempty"`

	// parameter
	Parameters map[string]string `yaml:"parameters,omitempty" json:"parameters,omitempty"`

	// multiple
	Operator string          `yaml:"operator,omitempty" json:"operator,omitempty"`
	Triggers []TriggerConfig `yaml:"triggers,omitempty" json:"triggers,omitempty"`

	// project
	Project          string `yaml:"project,omitempty" json:"project,omitempty"`
	ServerURI        string `yaml:"serverUri,omitempty" json:"serverUri,omitempty"`
	TriggerStatus    string `yaml:"triggerStatus,omitempty" json:"triggerStatus,omitempty"`
	TriggerFirstTime bool   `yaml:"triggerFirstTime,omitempty" json:"triggerFirstTime,omitempty"`

	// filter, parameter, rollup: the wrapped trigger. project: the poll throttle.
	Trigger *TriggerConfig `yaml:"trigger,omitempty" json:"trigger,omitempty"`
}

// PipelineConfig describes how a fired request is executed.
type PipelineConfig struct {
	Type    PipelineType      `yaml:"type" json:"type"`
	Command string            `yaml:"command,omitempty" json:"command,omitempty"`
	URL     string            `yaml:"url,omitempty" json:"url,omitempty"`
	Method  string            `yaml:"method,omitempty" json:"method,omitempty"`
	Headers map[string]string `yaml:"headers,omitempty" json:"headers,omitempty"`
	Timeout Timeout           `yaml:"timeout,omitempty" json:"timeout,omitempty"`

	// stepfunctions
	StateMachineARN string  `yaml:"stateMachineArn,omitempty" json:"stateMachineArn,omitempty"`
	PollInterval    Timeout `yaml:"pollInterval,omitempty" json:"pollInterval,omitempty"`
}

// ProjectConfig is one scheduled project.
type ProjectConfig struct {
	Name     string          `yaml:"name" json:"name"`
	Trigger  *TriggerConfig  `yaml:"trigger" json:"trigger"`
	Pipeline *PipelineConfig `yaml:"pipeline" json:"pipeline"`
	Interval Timeout         `yaml:"interval,omitempty" json:"interval,omitempty"` // tick override
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr   string `yaml:"addr" json:"addr"`
	APIKey string `yaml:"apiKey,omitempty" json:"apiKey,omitempty"`
}

// WatcherConfig configures the per-project scheduling loops.
type WatcherConfig struct {
	DefaultInterval Timeout `yaml:"defaultInterval" json:"defaultInterval"`
	TickTimeout     Timeout `yaml:"tickTimeout,omitempty" json:"tickTimeout,omitempty"`
}

// RemoteConfig configures clients of other build servers.
type RemoteConfig struct {
	APIKey  string  `yaml:"apiKey,omitempty" json:"apiKey,omitempty"`
	Timeout Timeout `yaml:"timeout,omitempty" json:"timeout,omitempty"`
}

// TelemetryConfig configures OpenTelemetry export. An empty Endpoint disables export.
type TelemetryConfig struct {
	Endpoint    string `yaml:"endpoint,omitempty" json:"endpoint,omitempty"`
	ServiceName string `yaml:"serviceName,omitempty" json:"serviceName,omitempty"`
	Insecure    bool   `yaml:"insecure,omitempty" json:"insecure,omitempty"`
}

// Calendar is a named set of permitted weekdays.
type Calendar struct {
	Name string   `yaml:"name" json:"name"`
	Days []string `yaml:"days" json:"days"` // "monday", "tuesday"
}

// Config is the top-level buildwatch.yaml document.
type Config struct {
	Server       *ServerConfig    `yaml:"server,omitempty" json:"server,omitempty"`
	Watcher      *WatcherConfig   `yaml:"watcher,omitempty" json:"watcher,omitempty"`
	Remote       *RemoteConfig    `yaml:"remote,omitempty" json:"remote,omitempty"`
	Telemetry    *TelemetryConfig `yaml:"telemetry,omitempty" json:"telemetry,omitempty"`
	StatusStore  string           `yaml:"statusStore,omitempty" json:"statusStore,omitempty"` // redis:// URL status is published to
	Alerts       []AlertConfig    `yaml:"alerts,omitempty" json:"alerts,omitempty"`
	CalendarDirs []string         `yaml:"calendarDirs,omitempty" json:"calendarDirs,omitempty"`
	ProjectDirs  []string         `yaml:"projectDirs,omitempty" json:"projectDirs,omitempty"`
	Projects     []ProjectConfig  `yaml:"projects,omitempty" json:"projects,omitempty"`
}
