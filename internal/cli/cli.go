package cli

import (
	"fmt"
	"os"

	goflags "github.com/jessevdk/go-flags"
)

// commands holds references to all subcommand structs for inspection/testing.
type commands struct {
	Serve     *ServeCommand
	Status    *StatusCommand
	Add       *AddCommand
	Report    *ReportCommand
	Recompute *RecomputeCommand
	Focus     *FocusCommand
	Settings  *SettingsCommand
	Purge     *PurgeCommand
}

// buildParser constructs the go-flags parser with all subcommands registered.
func buildParser(version string) (*goflags.Parser, *GlobalFlags, *commands) {
	var globals GlobalFlags

	parser := goflags.NewParser(&globals, goflags.Default)
	parser.Name = "dwell"
	parser.LongDescription = "Local screen-time accounting for your browser: per-site totals, limits, focus mode and weekly reports."

	cmds := &commands{
		Serve:     &ServeCommand{globals: &globals, version: version},
		Status:    &StatusCommand{globals: &globals, version: version},
		Add:       &AddCommand{globals: &globals},
		Report:    &ReportCommand{globals: &globals},
		Recompute: &RecomputeCommand{globals: &globals},
		Focus:     &FocusCommand{},
		Settings:  &SettingsCommand{},
		Purge:     &PurgeCommand{globals: &globals},
	}
	cmds.Focus.Start.globals = &globals
	cmds.Focus.End.globals = &globals
	cmds.Focus.Status.globals = &globals
	cmds.Settings.Show.globals = &globals
	cmds.Settings.Set.globals = &globals
	cmds.Settings.Reset.globals = &globals

	parser.AddCommand("serve", "Start the Dwell daemon", "Start the Dwell daemon (local HTTP service for the browser extension).", cmds.Serve)
	parser.AddCommand("status", "Show today's usage and daemon health", "Show today's usage, focus state, database statistics and whether the daemon is running.", cmds.Status)
	parser.AddCommand("add", "Manually record time on a domain", "Manually record time spent on a domain, for example time tracked on another device.", cmds.Add)
	parser.AddCommand("report", "Write the weekly report", "Recompute the weekly totals and write the plain-text weekly report.", cmds.Report)
	parser.AddCommand("recompute", "Rebuild weekly totals", "Rebuild the weekly totals from the daily records.", cmds.Recompute)
	parser.AddCommand("focus", "Control focus mode", "Start, end or inspect a focus session on the running daemon.", cmds.Focus)
	parser.AddCommand("settings", "Show or change settings", "Show, change or reset goals, limits and privacy settings.", cmds.Settings)
	parser.AddCommand("purge", "Delete ALL Dwell statistics", "Delete ALL Dwell statistics. Destructive operation with safety prompt.", cmds.Purge)

	return parser, &globals, cmds
}

// Run is the main entry point for the Dwell CLI using os.Args.
func Run(version string) error {
	return RunWithArgs(version, nil)
}

// RunWithArgs parses the given args (or os.Args if nil) and executes the matched subcommand.
func RunWithArgs(version string, args []string) error {
	// Handle --version before parser (go-flags requires a subcommand, but
	// --version is valid without one).
	checkArgs := args
	if checkArgs == nil {
		checkArgs = os.Args[1:]
	}
	for _, arg := range checkArgs {
		if arg == "--version" {
			fmt.Printf("dwell %s\n", version)
			return nil
		}
		if arg == "--" {
			break
		}
	}

	parser, _, _ := buildParser(version)

	var err error
	if args != nil {
		_, err = parser.ParseArgs(args)
	} else {
		_, err = parser.Parse()
	}

	if err != nil {
		if flagsErr, ok := err.(*goflags.Error); ok {
			if flagsErr.Type == goflags.ErrHelp {
				return nil
			}
		}
		return err
	}

	return nil
}
