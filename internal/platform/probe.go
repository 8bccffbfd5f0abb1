// Package platform detects the host OS family and CPU architecture.
package platform

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/ini.v1"
)

type OSFamily string

const (
	Debian        OSFamily = "debian"
	RedHat        OSFamily = "redhat"
	UnknownFamily OSFamily = "unknown"
)

type Arch string

const (
	AMD64       Arch = "amd64"
	ARM64       Arch = "arm64"
	UnknownArch Arch = "unknown"
)

// Profile is the detected platform. It is computed once per run.
type Profile struct {
	OSFamily OSFamily `json:"os_family" yaml:"os_family"`
	Arch     Arch     `json:"arch" yaml:"arch"`
}

func (p Profile) String() string {
	return fmt.Sprintf("%s/%s", p.OSFamily, p.Arch)
}

// Known reports whether both the family and architecture were recognised.
func (p Profile) Known() bool {
	return p.OSFamily != UnknownFamily && p.Arch != UnknownArch
}

var osReleasePaths = []string{"/etc/os-release", "/usr/lib/os-release"}

var familyIDs = map[string]OSFamily{
	"debian":    Debian,
	"ubuntu":    Debian,
	"raspbian":  Debian,
	"linuxmint": Debian,
	"pop":       Debian,
	"rhel":      RedHat,
	"centos":    RedHat,
	"fedora":    RedHat,
	"rocky":     RedHat,
	"almalinux": RedHat,
	"ol":        RedHat,
	"amzn":      RedHat,
}

// Probe reads the host identifiers. Missing sources yield unknown values.
func Probe() Profile {
	osRelease := map[string]string{}
	for _, path := range osReleasePaths {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		if parsed, err := ParseOSRelease(data); err == nil {
			osRelease = parsed
			break
		}
	}
	return Detect(osRelease, machine())
}

// ParseOSRelease parses os-release KEY=value content.
func ParseOSRelease(data []byte) (map[string]string, error) {
	f, err := ini.LoadSources(ini.LoadOptions{
		SkipUnrecognizableLines: true,
		IgnoreInlineComment:     true,
	}, data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse os-release: %w", err)
	}
	return f.Section(ini.DefaultSection).KeysHash(), nil
}

// Detect maps os-release values and a machine string to a Profile.
func Detect(osRelease map[string]string, machine string) Profile {
	return Profile{
		OSFamily: detectFamily(osRelease),
		Arch:     detectArch(machine),
	}
}

func detectFamily(osRelease map[string]string) OSFamily {
	candidates := []string{strings.ToLower(strings.TrimSpace(osRelease["ID"]))}
	candidates = append(candidates, strings.Fields(strings.ToLower(osRelease["ID_LIKE"]))...)

	for _, id := range candidates {
		if family, ok := familyIDs[id]; ok {
			return family
		}
	}
	return UnknownFamily
}

func detectArch(machine string) Arch {
	m := strings.ToLower(strings.TrimSpace(machine))
	switch {
	case m == "x86_64" || m == "amd64":
		return AMD64
	case m == "aarch64" || m == "arm64" || strings.HasPrefix(m, "armv8"):
		return ARM64
	default:
		return UnknownArch
	}
}
