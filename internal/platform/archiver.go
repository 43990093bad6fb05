package platform

import "os/exec"

// archiverNames are general-purpose archivers that accept
// `x -o<dir> -y <file>`, in order of preference.
var archiverNames = []string{"7z", "7zz", "7za"}

// LookArchiver returns the path of the first archiver found on PATH.
// Not finding one is a normal condition.
func LookArchiver() (string, bool) {
	for _, name := range archiverNames {
		if path, err := exec.LookPath(name); err == nil {
			return path, true
		}
	}
	return "", false
}

// ArchiverArgs builds the extract invocation: extract, destination,
// overwrite without prompting, source.
func ArchiverArgs(destDir, file string) []string {
	return []string{"x", "-o" + destDir, "-y", file}
}
