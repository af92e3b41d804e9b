// Package featureflags holds process wide switches for optional analysis
// stages. Flags are toggled at start-up with Update and read with Enabled.
package featureflags

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

var ErrUndefinedFlag = errors.New("undefined feature flag")

var flagRegistry = make(map[string]*FeatureFlag)

// FeatureFlag stores the state for a single flag.
type FeatureFlag struct {
	name      string
	isEnabled bool
}

// new registers the flag and sets the default enabled state.
func new(name string, defaultEnabled bool) *FeatureFlag {
	ff := &FeatureFlag{
		name:      name,
		isEnabled: defaultEnabled,
	}
	flagRegistry[name] = ff
	return ff
}

// Enabled returns whether or not the feature is enabled.
func (ff *FeatureFlag) Enabled() bool {
	return ff.isEnabled
}

// Name returns the name used to toggle the flag.
func (ff *FeatureFlag) Name() string {
	return ff.name
}

// Update changes the state of the flags named in a comma separated list.
//
// A bare name enables the flag and a name preceded by "-" disables it, so
// "StringIndicators,-ArchiveInspection" turns one on and the other off. Blank
// entries are ignored.
//
// If a flag is undefined an error wrapping ErrUndefinedFlag is returned and no
// flag is changed.
func Update(flags string) error {
	updates := make(map[*FeatureFlag]bool)
	for _, n := range strings.Split(flags, ",") {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		isEnabled := true
		if n[0] == '-' {
			isEnabled = false
			n = n[1:]
		}
		ff, ok := flagRegistry[n]
		if !ok {
			return fmt.Errorf("%w %q", ErrUndefinedFlag, n)
		}
		updates[ff] = isEnabled
	}
	for ff, isEnabled := range updates {
		ff.isEnabled = isEnabled
	}
	return nil
}

// State returns a representation of the flags that are enabled and disabled.
func State() map[string]bool {
	s := make(map[string]bool)
	for k, v := range flagRegistry {
		s[k] = v.Enabled()
	}
	return s
}

// Names returns the names of all defined flags in sorted order.
func Names() []string {
	names := maps.Keys(flagRegistry)
	slices.Sort(names)
	return names
}
