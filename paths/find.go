// Package paths locates sprite datafiles across the places a user is
// likely to keep them.
package paths

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/golang/glog"
	"github.com/pkg/errors"
)

// candidateDirs lists the directories Find searches, in order: the
// STI_PATH environment variable (colon separated), the working
// directory, a datafiles/ subdirectory, and the directory next to the
// binary.
func candidateDirs() []string {
	var dirs []string
	if p := os.Getenv("STI_PATH"); p != "" {
		dirs = append(dirs, strings.Split(p, ":")...)
	}
	dirs = append(dirs, ".", "datafiles")
	if exe, err := os.Executable(); err == nil {
		dirs = append(dirs, filepath.Dir(exe))
	}
	return dirs
}

// Find locates the passed datafile shortname and returns an absolute or
// relative path to find the datafile at, or an empty string when it is
// nowhere to be found.
func Find(fileName string) string {
	for _, dir := range candidateDirs() {
		path := filepath.Join(dir, fileName)
		if f, err := os.Open(path); err == nil {
			f.Close()
			glog.Infof("paths.Find(%q)=%s", fileName, path)
			return path
		}
	}
	return ""
}

// Open locates the passed file in the same locations that Find would
// look, and opens it. If Find returns an empty string, an error is
// returned.
func Open(fileName string) (interface {
	io.ReadCloser
	io.Seeker
}, error) {
	path := Find(fileName)
	if path == "" {
		return nil, errors.Errorf("could not find %q in any known location", fileName)
	}
	return os.Open(path)
}

// NoFindOpen opens the passed path directly, without searching.
func NoFindOpen(fileName string) (interface {
	io.ReadCloser
	io.Seeker
}, error) {
	return os.Open(fileName)
}
