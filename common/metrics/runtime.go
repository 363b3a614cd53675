package metrics

import (
	"os"
	"runtime"
	"strings"
)

// RuntimeInfo describes the host a process runs on. It is logged once at
// startup and printed by the version command.
type RuntimeInfo struct {
	Hostname         string `json:"hostname"`
	OS               string `json:"os"`
	OSVersion        string `json:"os_version"`
	Arch             string `json:"arch"`
	CPUs             int    `json:"cpus"`
	GoVersion        string `json:"go_version"`
	InContainer      bool   `json:"in_container"`
	ContainerRuntime string `json:"container_runtime,omitempty"`
}

// Capture gathers runtime information for the current process
func Capture() *RuntimeInfo {
	info := &RuntimeInfo{
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
		CPUs:      runtime.NumCPU(),
		GoVersion: runtime.Version(),
		OSVersion: osVersion("/etc/os-release"),
	}

	if hostname, err := os.Hostname(); err == nil {
		info.Hostname = hostname
	} else {
		info.Hostname = "unknown"
	}

	info.InContainer, info.ContainerRuntime = detectContainer()
	return info
}

// LogArgs returns the info as slog key/value pairs
func (i *RuntimeInfo) LogArgs() []any {
	args := []any{
		"hostname", i.Hostname,
		"os", i.OS,
		"os_version", i.OSVersion,
		"arch", i.Arch,
		"cpus", i.CPUs,
		"go_version", i.GoVersion,
	}
	if i.InContainer {
		args = append(args, "container", i.ContainerRuntime)
	}
	return args
}

// detectContainer checks if running in a container
func detectContainer() (bool, string) {
	// Check for Docker
	if _, err := os.Stat("/.dockerenv"); err == nil {
		return true, "docker"
	}

	// Check for Kubernetes
	if _, err := os.Stat("/var/run/secrets/kubernetes.io"); err == nil {
		return true, "kubernetes"
	}

	// Check cgroup for container indicators
	if data, err := os.ReadFile("/proc/1/cgroup"); err == nil {
		content := string(data)
		switch {
		case strings.Contains(content, "docker"):
			return true, "docker"
		case strings.Contains(content, "kubepods"):
			return true, "kubernetes"
		case strings.Contains(content, "containerd"):
			return true, "containerd"
		}
	}

	return false, ""
}

// osVersion reads the distribution name from an os-release file. Other
// platforms report GOOS.
func osVersion(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return runtime.GOOS
	}

	var name, version string
	for _, line := range strings.Split(string(data), "\n") {
		switch {
		case strings.HasPrefix(line, "PRETTY_NAME="):
			return strings.Trim(strings.TrimPrefix(line, "PRETTY_NAME="), `"`)
		case strings.HasPrefix(line, "NAME="):
			name = strings.Trim(strings.TrimPrefix(line, "NAME="), `"`)
		case strings.HasPrefix(line, "VERSION="):
			version = strings.Trim(strings.TrimPrefix(line, "VERSION="), `"`)
		}
	}

	switch {
	case name != "" && version != "":
		return name + " " + version
	case name != "":
		return name
	default:
		return runtime.GOOS
	}
}
