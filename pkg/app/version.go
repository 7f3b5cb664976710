package app

import (
	"fmt"
	"maps"
	"runtime"
	"slices"
	"strings"
	"sync"
)

// 编译时通过 -ldflags "-X 'github.com/lk2023060901/xdooria-ai/pkg/app.Version=v1.0.0'" 注入
var (
	Version   = "dev"
	GitCommit = "unknown"
	AppName   = "xdooria-ai"
)

var (
	formatsMu sync.RWMutex
	formats   = map[string]int{}
)

// RegisterFormat 登记持久化格式的版本号，例如字节码与存档
func RegisterFormat(name string, version int) {
	formatsMu.Lock()
	defer formatsMu.Unlock()
	formats[name] = version
}

// Info 版本信息
type Info struct {
	AppName   string         `json:"app_name"`
	Version   string         `json:"version"`
	GitCommit string         `json:"git_commit"`
	GoVersion string         `json:"go_version"`
	Platform  string         `json:"platform"`
	Formats   map[string]int `json:"formats,omitempty"`
}

func GetInfo() Info {
	formatsMu.RLock()
	f := maps.Clone(formats)
	formatsMu.RUnlock()

	return Info{
		AppName:   AppName,
		Version:   Version,
		GitCommit: GitCommit,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
		Formats:   f,
	}
}

// String 形如 "xdooria-ai dev (commit: unknown, go: go1.25.4, plat: linux/amd64, bytecode=1 save=1)"
func (i Info) String() string {
	s := fmt.Sprintf("%s %s (commit: %s, go: %s, plat: %s",
		i.AppName, i.Version, i.GitCommit, i.GoVersion, i.Platform)
	if len(i.Formats) > 0 {
		parts := make([]string, 0, len(i.Formats))
		for _, name := range slices.Sorted(maps.Keys(i.Formats)) {
			parts = append(parts, fmt.Sprintf("%s=%d", name, i.Formats[name]))
		}
		s += ", " + strings.Join(parts, " ")
	}
	return s + ")"
}
