// Package lvini holds the LabVIEW configuration tokens written to the INI file
// passed with -pref when LabVIEW is launched.
package lvini

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/ni/labview-automation/pkg/lib"
)

// Section is the INI section LabVIEW reads its tokens from.
const Section = "LabVIEW"

// Known tokens.
const (
	KeyIsFirstLaunch                    = "IsFirstLaunch"
	KeyShowWelcomeOnLaunch              = "ShowWelcomeOnLaunch"
	KeyPrefDlgTestData                  = "prefDlgTestData"
	KeyDefaultErrorHandlingForNewVIs    = "defaultErrorHandlingForNewVIs"
	KeyPlayAnimatedImages               = "playAnimatedImages"
	KeySnapGridDrawAsLines              = "SnapGridDrawAsLines"
	KeyPaletteAsyncLoad                 = "paletteAsyncLoad"
	KeyPaletteLazyLoad                  = "paletteLazyLoad"
	KeyAutoErr                          = "autoerr"
	KeyPostScriptLevel2                 = "postScriptLevel2"
	KeySaveFloaterLocations             = "saveFloaterLocations"
	KeyMenuSetup                        = "menuSetup"
	KeySimpleDiagramHelp                = "simpleDiagramHelp"
	KeyRSSCheckEnabled                  = "GSW_RSSCheckEnabled"
	KeyAutoSaveEnabled                  = "AutoSaveEnabled"
	KeyShowCompileWarning               = "nirviShowCompileWarning"
	KeyFPGADialogControl                = "FPGADialogControl"
	KeyShowDetailsInLoadingDialog       = "showDetailsInLoadingDialog"
	KeyDeployDlgCloseWindow             = "DeployDlgCloseWindow"
	KeyShowErrorDialogs                 = "nirviShowErrorDialogs"
	KeyShowErrorDialogsOld              = "nirviShowErrorDialogsOld"
	KeyFPGABuildPromptSelectServer      = "NiFpga_BuildPrompt_SelectCompileServer"
	KeyDWarnDialog                      = "DWarnDialog"
	KeySuppressRTConnectionDialogs      = "SuppressRTConnectionDialogs"
	KeyNeverShowAddonLicensingStartup   = "neverShowAddonLicensingStartup"
	KeyNeverShowLicensingStartupDialog  = "neverShowLicensingStartupDialog"
	KeySaveChangesApplyToAll            = "SaveChanges_ApplyToAll"
	KeySaveChangesAutoSelection         = "SaveChangesAutoSelection"
	KeyNIERShowFatalDialog              = "NIERShowFatalDialog"
	KeyNIERFatalAutoSend                = "NIERFatalAutoSend"
	KeyNIERSendDialogClose              = "NIERSendDialogClose"
	KeyNIERShowNonFatalDialogOnExit     = "NIERShowNonFatalDialogOnExit"
	KeyNIERAutoSendAndSuppressAllDialog = "NIERAutoSendAndSuppressAllDialogs"
	KeyNIER                             = "NIER"
	KeyVISearchPath                     = "viSearchPath"
)

// DefaultSearchPath is the search path LabVIEW uses when viSearchPath is unset.
var DefaultSearchPath = []string{`<topvi>:\*`, `<foundvi>:\`, `<vilib>:\*`, `<userlib>:\*`, `<instrlib>:\*`}

// Options is an ordered set of tokens. Values are bool, an integer type, or string.
// Tokens that are not among the known keys are accepted as they are.
type Options struct {
	values map[string]any
	order  []string
}

// Empty returns an Options without any token.
func Empty() *Options {
	return &Options{values: make(map[string]any)}
}

// Defaults returns the tokens that keep a freshly launched LabVIEW quiet and fast.
func Defaults() *Options {
	o := Empty()
	o.Set(KeyIsFirstLaunch, false)
	o.Set(KeyShowWelcomeOnLaunch, false)
	o.Set(KeyPrefDlgTestData, 1234)
	o.Set(KeyDefaultErrorHandlingForNewVIs, false)
	o.Set(KeyPlayAnimatedImages, false)
	o.Set(KeySnapGridDrawAsLines, 1)
	o.Set(KeyPaletteAsyncLoad, false)
	o.Set(KeyPaletteLazyLoad, true)
	o.Set(KeyAutoErr, 3)
	o.Set(KeyPostScriptLevel2, false)
	o.Set(KeySaveFloaterLocations, true)
	o.Set(KeyMenuSetup, Quote("default"))
	o.Set(KeySimpleDiagramHelp, false)
	o.Set(KeyRSSCheckEnabled, false)
	o.Set(KeyAutoSaveEnabled, false)
	o.Set(KeyShowCompileWarning, false)
	o.Set(KeyFPGADialogControl, Quote("compileSummary;compileWarning;useOldBitfile"))
	o.Set(KeyShowDetailsInLoadingDialog, true)
	return o
}

// Quote wraps s in double quotes, the form LabVIEW expects for string tokens.
func Quote(s string) string {
	return `"` + s + `"`
}

// Set assigns a token, keeping the position of an existing key.
func (o *Options) Set(key string, value any) {
	if _, ok := o.values[key]; !ok {
		o.order = append(o.order, key)
	}
	o.values[key] = value
}

// Get returns the raw value of a token.
func (o *Options) Get(key string) (any, bool) {
	v, ok := o.values[key]
	return v, ok
}

// Delete removes a token.
func (o *Options) Delete(key string) {
	if _, ok := o.values[key]; !ok {
		return
	}
	delete(o.values, key)
	for i, k := range o.order {
		if k == key {
			o.order = append(o.order[:i], o.order[i+1:]...)
			break
		}
	}
}

// Keys returns token names in insertion order.
func (o *Options) Keys() []string {
	return append([]string(nil), o.order...)
}

// Merge copies every token of other into o.
func (o *Options) Merge(other map[string]any) {
	keys := make([]string, 0, len(other))
	for k := range other {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		o.Set(k, other[k])
	}
}

// DisableDialogs sets the tokens that suppress modal dialogs which would block
// unattended runs.
func (o *Options) DisableDialogs() {
	o.Set(KeyDeployDlgCloseWindow, true)
	o.Set(KeyShowErrorDialogs, false)
	o.Set(KeyShowErrorDialogsOld, false)
	o.Set(KeyFPGABuildPromptSelectServer, false)
	o.Set(KeyDWarnDialog, false)
	o.Set(KeySuppressRTConnectionDialogs, true)
	o.Set(KeyNeverShowAddonLicensingStartup, true)
	o.Set(KeyNeverShowLicensingStartupDialog, true)
	o.Set(KeySaveChangesApplyToAll, true)
	o.Set(KeySaveChangesAutoSelection, Quote("dont"))
	o.Set(KeyAutoErr, 3)
	o.Set(KeyNIERShowFatalDialog, 0)
	o.Set(KeyNIERFatalAutoSend, true)
	o.Set(KeyNIERSendDialogClose, true)
	o.Set(KeyNIERShowNonFatalDialogOnExit, false)
	o.Set(KeyNIERAutoSendAndSuppressAllDialog, true)
	o.Set(KeyAutoSaveEnabled, false)
}

// DisableNIErrorReporting turns NI Error Reporting off.
func (o *Options) DisableNIErrorReporting() {
	o.Set(KeyNIER, false)
}

// SearchPath returns the entries of viSearchPath, or DefaultSearchPath when it is unset.
func (o *Options) SearchPath() []string {
	raw, ok := o.values[KeyVISearchPath].(string)
	if !ok {
		return append([]string(nil), DefaultSearchPath...)
	}
	raw = strings.Trim(raw, `"'`)
	if raw == "" {
		return nil
	}
	return strings.Split(raw, ";")
}

// AddToSearchPath puts path at the front of viSearchPath, or at the end when
// appendPath is set. A path already present is left where it is.
func (o *Options) AddToSearchPath(path string, appendPath bool) {
	paths := o.SearchPath()
	for _, p := range paths {
		if p == path {
			o.Set(KeyVISearchPath, Quote(strings.Join(paths, ";")))
			return
		}
	}
	if appendPath {
		paths = append(paths, path)
	} else {
		paths = append([]string{path}, paths...)
	}
	o.Set(KeyVISearchPath, Quote(strings.Join(paths, ";")))
}

// Sections renders the tokens as INI sections, validating every key and value.
func (o *Options) Sections() ([]lib.INISection, error) {
	section := lib.INISection{Name: Section, Entries: make([]lib.INIEntry, 0, len(o.order))}
	for _, key := range o.order {
		if err := validKey(key); err != nil {
			return nil, err
		}
		value, err := Format(o.values[key])
		if err != nil {
			return nil, &lib.ConfigurationError{Field: "ini token " + key, Reason: err.Error()}
		}
		section.Entries = append(section.Entries, lib.INIEntry{Key: key, Value: value})
	}
	return []lib.INISection{section}, nil
}

// Format renders a token value the way LabVIEW writes it: True/False for booleans.
func Format(v any) (string, error) {
	var s string
	switch v := v.(type) {
	case bool:
		if v {
			return "True", nil
		}
		return "False", nil
	case int:
		return strconv.Itoa(v), nil
	case int32:
		return strconv.FormatInt(int64(v), 10), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case uint16:
		return strconv.FormatUint(uint64(v), 10), nil
	case uint32:
		return strconv.FormatUint(uint64(v), 10), nil
	case string:
		s = v
	default:
		return "", fmt.Errorf("unsupported value type %T", v)
	}
	if strings.ContainsAny(s, "\r\n") {
		return "", fmt.Errorf("value must be a single line")
	}
	return s, nil
}

func validKey(key string) error {
	switch {
	case strings.TrimSpace(key) == "":
		return &lib.ConfigurationError{Field: "ini token", Reason: "empty key"}
	case strings.ContainsAny(key, "=[]\r\n;#"):
		return &lib.ConfigurationError{Field: "ini token", Reason: fmt.Sprintf("key %q contains a reserved character", key)}
	}
	return nil
}
