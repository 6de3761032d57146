package agent

import (
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
)

// IsWindows selects Windows path handling and process behavior
var IsWindows = runtime.GOOS == "windows"

// gitBashCandidates are checked when CLAUDE_CODE_GIT_BASH_PATH is unset
var gitBashCandidates = []string{
	`C:\Program Files\Git\bin\bash.exe`,
	`D:\Git\bin\bash.exe`,
	`C:\Git\bin\bash.exe`,
}

// BaseEnv returns the inherited environment prepared for agent CLIs:
// nested-session markers removed and PATH extended with common user-local
// and package-manager install locations.
func BaseEnv(workDir string) map[string]string {
	env := EnvMap(os.Environ())
	delete(env, "CLAUDECODE")

	if IsWindows {
		prependPath(env, ";", filepath.Join(env["APPDATA"], "npm"))
		if home, err := os.UserHomeDir(); err == nil {
			prependPath(env, ";", filepath.Join(home, "AppData", "Local", "Programs", "Python", "Scripts"))
		}
		if _, ok := env["CLAUDE_CODE_GIT_BASH_PATH"]; !ok {
			candidates := append([]string{}, gitBashCandidates...)
			if pf := env["ProgramFiles"]; pf != "" {
				candidates = append(candidates, filepath.Join(pf, "Git", "bin", "bash.exe"))
			}
			for _, candidate := range candidates {
				if isFile(candidate) {
					env["CLAUDE_CODE_GIT_BASH_PATH"] = candidate
					break
				}
			}
		}
		return env
	}

	home, _ := os.UserHomeDir()
	if home != "" {
		env["HOME"] = home
	}
	var extra []string
	for _, dir := range []string{
		filepath.Join(home, ".local", "bin"),
		filepath.Join(home, ".npm-global", "bin"),
		"/opt/homebrew/bin",
		"/opt/homebrew/sbin",
		"/usr/local/bin",
	} {
		if home == "" && !filepath.IsAbs(dir) {
			continue
		}
		if isDir(dir) {
			extra = append(extra, dir)
		}
	}
	extra = append(extra, "/usr/bin", "/bin")
	if current := env["PATH"]; current != "" {
		extra = append(extra, current)
	}
	env["PATH"] = strings.Join(extra, ":")

	if workDir != "" {
		goroot := filepath.Join(workDir, "goroot")
		gopath := filepath.Join(workDir, "gopath")
		if isDir(goroot) {
			env["GOROOT"] = goroot
			env["PATH"] = filepath.Join(gopath, "bin") + ":" + filepath.Join(goroot, "bin") + ":" + env["PATH"]
		}
		if isDir(gopath) {
			env["GOPATH"] = gopath
		}
	}
	return env
}

// EnvMap converts KEY=VALUE pairs into a map; later entries win
func EnvMap(pairs []string) map[string]string {
	env := make(map[string]string, len(pairs))
	for _, kv := range pairs {
		if i := strings.IndexByte(kv, '='); i > 0 {
			env[kv[:i]] = kv[i+1:]
		}
	}
	return env
}

// EnvList renders env as a sorted KEY=VALUE list for exec.Cmd
func EnvList(env map[string]string) []string {
	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, k+"="+v)
	}
	sort.Strings(out)
	return out
}

func prependPath(env map[string]string, sep, dir string) {
	if !isDir(dir) {
		return
	}
	key := pathKey(env)
	if current := env[key]; current != "" {
		env[key] = dir + sep + current
		return
	}
	env[key] = dir
}

// pathKey finds the PATH variable name; Windows spells it Path
func pathKey(env map[string]string) string {
	for k := range env {
		if strings.EqualFold(k, "PATH") {
			return k
		}
	}
	return "PATH"
}

func isDir(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.IsDir()
}

func isFile(p string) bool {
	info, err := os.Stat(p)
	return err == nil && !info.IsDir()
}
