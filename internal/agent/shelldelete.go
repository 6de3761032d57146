package agent

import (
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"unicode"

	"github.com/google/shlex"
)

var (
	// segmentSep splits compound shell commands
	segmentSep = regexp.MustCompile(`\s*(?:&&|\|\||;)\s*`)
	// posixDrive matches Git Bash style drive paths such as /c/Users
	posixDrive = regexp.MustCompile(`^/[a-zA-Z]/`)
	// winAbs matches drive-qualified or rooted Windows paths
	winAbs = regexp.MustCompile(`^(?:[a-zA-Z]:[\\/]|[\\/])`)
)

// deleteVerbs covers rm/rmdir (POSIX, Git Bash), del/erase/rd (cmd.exe)
// and Remove-Item/ri (PowerShell)
var deleteVerbs = map[string]bool{
	"rm":          true,
	"rmdir":       true,
	"del":         true,
	"erase":       true,
	"rd":          true,
	"remove-item": true,
	"ri":          true,
}

// ParseDeletedPaths returns the absolute paths a shell command deletes.
// Relative paths are resolved against cwd.
func ParseDeletedPaths(command, cwd string) []string {
	return parseDeletedPaths(command, cwd, IsWindows)
}

func parseDeletedPaths(command, cwd string, windows bool) []string {
	if strings.TrimSpace(command) == "" {
		return nil
	}

	var paths []string
	for _, segment := range segmentSep.Split(command, -1) {
		segment = strings.TrimSpace(segment)
		if segment == "" {
			continue
		}
		tokens := splitArgs(segment, windows)
		if len(tokens) == 0 {
			continue
		}

		verb := strings.ToLower(baseName(tokens[0]))
		verb = strings.TrimSuffix(verb, ".exe")
		if !deleteVerbs[verb] {
			continue
		}

		for _, token := range tokens[1:] {
			if strings.HasPrefix(token, "-") {
				continue
			}
			// cmd.exe switches such as /s /q
			if windows && len(token) > 1 && token[0] == '/' && unicode.IsLetter(rune(token[1])) && len(token) <= 3 {
				continue
			}
			p := strings.Trim(token, `'"`)
			if p == "" || p == "." || p == ".." {
				continue
			}
			paths = append(paths, resolvePath(p, cwd, windows))
		}
	}
	return paths
}

// splitArgs tokenizes one command. Windows commands keep backslashes literal.
func splitArgs(segment string, windows bool) []string {
	if windows {
		return splitWindowsArgs(segment)
	}
	tokens, err := shlex.Split(segment)
	if err != nil {
		return strings.Fields(segment)
	}
	return tokens
}

// splitWindowsArgs splits on whitespace outside double or single quotes
func splitWindowsArgs(s string) []string {
	var (
		tokens  []string
		current strings.Builder
		quote   rune
		inToken bool
	)
	for _, r := range s {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			} else {
				current.WriteRune(r)
			}
		case r == '"' || r == '\'':
			quote = r
			inToken = true
		case unicode.IsSpace(r):
			if inToken {
				tokens = append(tokens, current.String())
				current.Reset()
				inToken = false
			}
		default:
			current.WriteRune(r)
			inToken = true
		}
	}
	if inToken {
		tokens = append(tokens, current.String())
	}
	return tokens
}

// resolvePath makes p absolute against cwd using the target platform's rules
func resolvePath(p, cwd string, windows bool) string {
	if !windows {
		if !filepath.IsAbs(p) {
			p = filepath.Join(cwd, p)
		}
		return filepath.Clean(p)
	}

	p = strings.ReplaceAll(p, `\`, "/")
	if posixDrive.MatchString(p) {
		p = strings.ToUpper(p[1:2]) + ":" + p[2:]
	}
	if !winAbs.MatchString(p) {
		p = strings.TrimRight(strings.ReplaceAll(cwd, `\`, "/"), "/") + "/" + p
	}
	return strings.ReplaceAll(path.Clean(p), "/", `\`)
}

// baseName strips directories using both separators so that
// C:\Windows\System32\del.exe and /bin/rm resolve alike
func baseName(p string) string {
	if i := strings.LastIndexAny(p, `/\`); i >= 0 {
		return p[i+1:]
	}
	return p
}
