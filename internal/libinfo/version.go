/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package libinfo

import (
	"debug/buildinfo"
	"regexp"
	"runtime/debug"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const libShortName = "go-fetchkit"

const moduleName = "github.com/acronis/" + libShortName

// PrometheusLibVersionLabel is the label name under which the library version is exported.
const PrometheusLibVersionLabel = "go_fetchkit_version"

// SentryLibVersionTag is the tag name under which the library version is attached to Sentry events.
const SentryLibVersionTag = "go_fetchkit.version"

// WithPrometheusLibVersionLabel returns a copy of labels extended with the library version label.
func WithPrometheusLibVersionLabel(labels prometheus.Labels) prometheus.Labels {
	res := make(prometheus.Labels, len(labels)+1)
	for k, v := range labels {
		res[k] = v
	}
	res[PrometheusLibVersionLabel] = GetLibVersion()
	return res
}

var (
	libVersion     string
	libVersionOnce sync.Once
)

// GetLibVersion returns the version of go-fetchkit the binary was built with ("v0.0.0" if unknown).
func GetLibVersion() string {
	libVersionOnce.Do(func() {
		if info, ok := debug.ReadBuildInfo(); ok {
			libVersion = findModuleVersion(info, moduleName)
		}
		if libVersion == "" {
			libVersion = "v0.0.0"
		}
	})
	return libVersion
}

// findModuleVersion looks for modName (optionally with a "/vN" major suffix) among the build dependencies.
func findModuleVersion(info *buildinfo.BuildInfo, modName string) string {
	if info == nil {
		return ""
	}
	re := regexp.MustCompile(`^` + regexp.QuoteMeta(modName) + `(/v[0-9]+)?$`)
	for _, dep := range info.Deps {
		if re.MatchString(dep.Path) {
			return dep.Version
		}
	}
	return ""
}
