package cli

import "github.com/runnerr0/dwell/internal/app"

// GlobalFlags holds flags available to all subcommands.
type GlobalFlags struct {
	Config  string `long:"config" description:"Path to config file" default:""`
	JSON    bool   `long:"json" description:"Output in JSON format"`
	Verbose bool   `long:"verbose" description:"Enable verbose output"`
	Version bool   `long:"version" description:"Show version and exit"`
}

// ServeCommand: run the tracking daemon (local HTTP service).
type ServeCommand struct {
	Foreground bool   `long:"foreground" description:"Also log to stderr"`
	Port       int    `long:"port" description:"Override daemon port"`
	LogLevel   string `long:"log-level" description:"Override log level"`

	globals *GlobalFlags
	version string
}

// StatusCommand: show today's totals, focus state and database summary.
type StatusCommand struct {
	globals *GlobalFlags
	version string
	app     *app.App // injectable for testing; nil means open from config
	client  *daemonClient
}

// AddCommand: manually record time spent on a domain.
type AddCommand struct {
	Domain  string `long:"domain" description:"Domain or URL (required)"`
	Date    string `long:"date" description:"Date as YYYY-MM-DD (default today)"`
	Minutes int    `long:"minutes" description:"Minutes spent"`
	Seconds int64  `long:"seconds" description:"Seconds spent (added to --minutes)"`

	globals *GlobalFlags
	app     *app.App
	client  *daemonClient
}

// ReportCommand: write the weekly text report.
type ReportCommand struct {
	Print bool `long:"print" description:"Print the report instead of only its path"`

	globals *GlobalFlags
	app     *app.App
	client  *daemonClient
}

// RecomputeCommand: rebuild the weekly cache from daily records.
type RecomputeCommand struct {
	globals *GlobalFlags
	app     *app.App
	client  *daemonClient
}

// FocusCommand groups the focus subcommands; they act on the running daemon.
type FocusCommand struct {
	Start  FocusStartCommand  `command:"start" description:"Start a focus session"`
	End    FocusEndCommand    `command:"end" description:"End the focus session"`
	Status FocusStatusCommand `command:"status" description:"Show the focus session"`
}

type FocusStartCommand struct {
	Minutes int      `long:"minutes" description:"Session length in minutes (default from settings)"`
	Block   []string `long:"block" description:"Domain to block (repeatable)" required:"true"`

	globals *GlobalFlags
	client  *daemonClient
}

type FocusEndCommand struct {
	globals *GlobalFlags
	client  *daemonClient
}

type FocusStatusCommand struct {
	globals *GlobalFlags
	client  *daemonClient
}

// SettingsCommand groups the settings subcommands.
type SettingsCommand struct {
	Show  SettingsShowCommand  `command:"show" description:"Print current settings"`
	Set   SettingsSetCommand   `command:"set" description:"Change settings"`
	Reset SettingsResetCommand `command:"reset" description:"Restore default settings"`
}

type SettingsShowCommand struct {
	globals *GlobalFlags
	app     *app.App
	client  *daemonClient
}

// SettingsSetCommand changes only the flags that were given.
type SettingsSetCommand struct {
	Goal          *int     `long:"goal" description:"Daily screen time goal in minutes"`
	FocusDuration *int     `long:"focus-duration" description:"Default focus session length in minutes"`
	BreakDuration *int     `long:"break-duration" description:"Break length in minutes"`
	BreakInterval *int     `long:"break-interval" description:"Minutes between break reminders (0 disables)"`
	Notifications string   `long:"notifications" description:"Turn notifications on or off" choice:"on" choice:"off"`
	Privacy       string   `long:"privacy" description:"Privacy level" choice:"standard" choice:"strict"`
	SiteLimit     []string `long:"site-limit" description:"domain=minutes (repeatable, 0 removes)"`
	CategoryLimit []string `long:"category-limit" description:"category=minutes (repeatable, 0 removes)"`
	Productive    []string `long:"productive" description:"Replace the productive domain list (repeatable)"`

	globals *GlobalFlags
	app     *app.App
	client  *daemonClient
}

type SettingsResetCommand struct {
	globals *GlobalFlags
	app     *app.App
	client  *daemonClient
}

// PurgeCommand: delete all statistics with safety confirmation.
type PurgeCommand struct {
	All        bool `long:"all" description:"Required flag to confirm purge intent"`
	Force      bool `long:"force" description:"Skip safety confirmation prompt"`
	Everything bool `long:"everything" description:"Also delete settings, the focus session and queued notifications"`

	globals *GlobalFlags
	app     *app.App
	client  *daemonClient
}
