package util

import (
	"os"
	"os/user"
	"strings"
)

// ExpandFullPath expands environment variable references and then a leading
// home-directory shorthand in path.
//
// Both $NAME and ${NAME} are recognised. References to variables that are not
// set are left untouched, so expanding an already-expanded path, or a path
// with no markers, returns it unchanged. "~" and "~/..." resolve to $HOME
// (or the current user's home), "~name/..." to that user's home; an unknown
// user leaves the path as is.
func ExpandFullPath(path string) string {
	return expandUser(expandVars(path))
}

func expandVars(path string) string {
	if !strings.Contains(path, "$") {
		return path
	}

	var sb strings.Builder
	sb.Grow(len(path))

	for i := 0; i < len(path); {
		if path[i] != '$' {
			sb.WriteByte(path[i])
			i++
			continue
		}

		name, width := scanVarName(path[i+1:])
		if width == 0 {
			sb.WriteByte('$')
			i++
			continue
		}

		if value, ok := os.LookupEnv(name); ok {
			sb.WriteString(value)
		} else {
			sb.WriteString(path[i : i+1+width])
		}
		i += 1 + width
	}

	return sb.String()
}

// scanVarName returns the variable name at the start of s and how many bytes
// of s the reference spans, or width 0 if s does not start a reference
func scanVarName(s string) (name string, width int) {
	if strings.HasPrefix(s, "{") {
		end := strings.IndexByte(s, '}')
		if end < 0 {
			return "", 0
		}
		return s[1:end], end + 1
	}

	n := 0
	for n < len(s) && isNameByte(s[n]) {
		n++
	}
	return s[:n], n
}

func isNameByte(c byte) bool {
	return c == '_' ||
		(c >= 'a' && c <= 'z') ||
		(c >= 'A' && c <= 'Z') ||
		(c >= '0' && c <= '9')
}

func expandUser(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}

	end := strings.IndexByte(path, '/')
	if end < 0 {
		end = len(path)
	}

	var home string
	if end == 1 {
		home = os.Getenv("HOME")
		if home == "" {
			u, err := user.Current()
			if err != nil {
				return path
			}
			home = u.HomeDir
		}
	} else {
		u, err := user.Lookup(path[1:end])
		if err != nil {
			return path
		}
		home = u.HomeDir
	}

	home = strings.TrimRight(home, "/")
	expanded := home + path[end:]
	if expanded == "" {
		return "/"
	}
	return expanded
}
