package client

import (
	"maps"
	"slices"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Command names understood by the listener.
const (
	CommandRunVI         = "run_vi"
	CommandSetControls   = "set_controls"
	CommandGetIndicators = "get_indicators"
	CommandDescribeError = "describe_error"
)

// Status fields the listener adds to a response when a command failed.
const (
	fieldStatus = "RunVIState_Status"
	fieldCode   = "RunVIState_Code"
	fieldSource = "RunVIState_Source"
	fieldMsg    = "msg"
)

// Command is a request document sent to the listener.
type Command interface {
	Name() string
}

// RunVIRequest runs a VI on the remote machine and returns its indicators.
type RunVIRequest struct {
	// VIPath is the absolute path of the VI on the listener's machine.
	VIPath string
	// ControlValues are written to the VI's controls before it runs.
	ControlValues map[string]any
	// RunOptions is the LabVIEW run-options bit field.
	RunOptions int32
	// OpenFrontPanel opens the VI's front panel while it runs.
	OpenFrontPanel bool
	// IndicatorNames selects the indicators to return; empty returns all of them.
	IndicatorNames []string
}

// SetControlsRequest writes control values on a VI inside a project target without running it.
type SetControlsRequest struct {
	ProjectPath   string
	TargetName    string
	VIPath        string
	ControlValues map[string]any
	// IgnoreNonexistentControls suppresses errors for names the VI does not have.
	IgnoreNonexistentControls bool
}

// GetIndicatorsRequest reads indicator values from a VI inside a project target without running it.
type GetIndicatorsRequest struct {
	ProjectPath    string
	TargetName     string
	VIPath         string
	IndicatorNames []string
}

type runVICommand struct {
	Command        string   `bson:"command"`
	VIPath         string   `bson:"vi_path"`
	RunOptions     int32    `bson:"run_options"`
	OpenFrontPanel bool     `bson:"open_frontpanel"`
	ControlValues  bson.D   `bson:"control_values"`
	IndicatorNames []string `bson:"indicator_names"`
}

func (runVICommand) Name() string { return CommandRunVI }

type setControlsCommand struct {
	Command                   string `bson:"command"`
	ProjectPath               string `bson:"project_path"`
	TargetName                string `bson:"target_name"`
	VIPath                    string `bson:"vi_path"`
	ControlValues             bson.D `bson:"control_values"`
	IgnoreNonexistentControls bool   `bson:"ignore_nonexistent_controls"`
}

func (setControlsCommand) Name() string { return CommandSetControls }

type getIndicatorsCommand struct {
	Command        string   `bson:"command"`
	ProjectPath    string   `bson:"project_path"`
	TargetName     string   `bson:"target_name"`
	VIPath         string   `bson:"vi_path"`
	IndicatorNames []string `bson:"indicator_names"`
}

func (getIndicatorsCommand) Name() string { return CommandGetIndicators }

type errorCluster struct {
	Code   int32  `bson:"code"`
	Status bool   `bson:"status"`
	Source string `bson:"source"`
}

type describeErrorCommand struct {
	Command string       `bson:"command"`
	Error   errorCluster `bson:"error"`
}

func (describeErrorCommand) Name() string { return CommandDescribeError }

func newRunVICommand(req RunVIRequest) runVICommand {
	return runVICommand{
		Command:        CommandRunVI,
		VIPath:         req.VIPath,
		RunOptions:     req.RunOptions,
		OpenFrontPanel: req.OpenFrontPanel,
		ControlValues:  sortedDocument(req.ControlValues),
		IndicatorNames: nonNilNames(req.IndicatorNames),
	}
}

func newSetControlsCommand(req SetControlsRequest) setControlsCommand {
	return setControlsCommand{
		Command:                   CommandSetControls,
		ProjectPath:               req.ProjectPath,
		TargetName:                req.TargetName,
		VIPath:                    req.VIPath,
		ControlValues:             sortedDocument(req.ControlValues),
		IgnoreNonexistentControls: req.IgnoreNonexistentControls,
	}
}

func newGetIndicatorsCommand(req GetIndicatorsRequest) getIndicatorsCommand {
	return getIndicatorsCommand{
		Command:        CommandGetIndicators,
		ProjectPath:    req.ProjectPath,
		TargetName:     req.TargetName,
		VIPath:         req.VIPath,
		IndicatorNames: nonNilNames(req.IndicatorNames),
	}
}

func newDescribeErrorCommand(code int32, source string, status bool) describeErrorCommand {
	return describeErrorCommand{
		Command: CommandDescribeError,
		Error:   errorCluster{Code: code, Status: status, Source: source},
	}
}

// sortedDocument orders m, and any map nested in it, by key so the same values
// always encode to the same bytes. A nil map becomes an empty document; the
// listener rejects null here.
func sortedDocument(m map[string]any) bson.D {
	doc := make(bson.D, 0, len(m))
	for _, key := range slices.Sorted(maps.Keys(m)) {
		doc = append(doc, bson.E{Key: key, Value: canonical(m[key])})
	}
	return doc
}

func canonical(v any) any {
	switch v := v.(type) {
	case map[string]any:
		return sortedDocument(v)
	case []any:
		out := make(bson.A, len(v))
		for i, item := range v {
			out[i] = canonical(item)
		}
		return out
	default:
		return v
	}
}

// The listener expects an empty array rather than null for these fields.
func nonNilNames(names []string) []string {
	if names == nil {
		return []string{}
	}
	return names
}
