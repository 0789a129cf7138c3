// Package buildinfo carries the build metadata of the binaries. Values are
// populated at build time through the prometheus/common/version variables:
//
//	-ldflags "-X github.com/prometheus/common/version.Version=v0.2.0"
package buildinfo

import (
	"github.com/prometheus/common/version"
)

const Graffiti = " ____   ___  __  __ \n|  _ \\ / _ \\|  \\/  |\n| |_) | | | | |\\/| |\n|  __/| |_| | |  | |\n|_|    \\__\\_\\_|  |_|\n\n"

const Name = "pqm"

const defaultTag = "v0.0.0"

type buildinfo struct{}

func (buildinfo) Tag() string {
	if version.Version == "" {
		return defaultTag
	}
	return version.Version
}

func (buildinfo) Name() string {
	return Name
}

func (buildinfo) Time() string {
	return version.BuildDate
}

// Banner is the startup text printed by the server binary.
func (b buildinfo) Banner() string {
	return Graffiti + version.Print(b.Name())
}

var Info buildinfo
