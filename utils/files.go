package utils

import (
	"bufio"
	"bytes"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/juju/errors"
)

// Outcome tells whether an ensure step produced a new artifact.
type Outcome int

const (
	Created Outcome = iota
	AlreadyExists
)

func (o Outcome) String() string {
	if o == Created {
		return "created"
	}
	return "already exists"
}

// ExamplePath returns the template of a config file: ".example" inserted
// before the final extension (config.yml -> config.example.yml).
func ExamplePath(target string) string {
	ext := filepath.Ext(target)
	if ext == "" {
		return target + ".example"
	}
	return strings.TrimSuffix(target, ext) + ".example" + ext
}

// EnsureFromTemplate copies the example template to target unless target exists.
func EnsureFromTemplate(target string) (Outcome, error) {
	return EnsureFromSample(ExamplePath(target), target)
}

// EnsureFromSample copies sample to target unless target exists.
func EnsureFromSample(sample, target string) (Outcome, error) {
	if _, err := os.Stat(target); err == nil {
		return AlreadyExists, nil
	} else if !os.IsNotExist(err) {
		return AlreadyExists, errors.Trace(err)
	}

	if err := CopyFileContents(sample, target); err != nil {
		return AlreadyExists, errors.Annotatef(err, "unable to create %s", target)
	}
	return Created, nil
}

// CopyFileContents copies src to dst. It never overwrites: an existing dst
// (even one created while copying) makes it fail.
func CopyFileContents(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return errors.Trace(err)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return errors.Trace(err)
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, info.Mode().Perm())
	if err != nil {
		return errors.Trace(err)
	}

	if _, err = io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return errors.Trace(err)
	}
	if err = out.Sync(); err != nil {
		out.Close()
		os.Remove(dst)
		return errors.Trace(err)
	}
	return errors.Trace(out.Close())
}

// CopyFile copies src over dst, replacing dst if present.
func CopyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return errors.Trace(err)
	}
	info, err := os.Stat(src)
	if err != nil {
		return errors.Trace(err)
	}
	return WriteFileAtomic(dst, data, info.Mode().Perm())
}

// WriteFileAtomic writes data to a temporary file next to path and renames it
// into place, so readers see either the old or the new content.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp")
	if err != nil {
		return errors.Trace(err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Trace(err)
	}
	if err := tmp.Chmod(perm); err != nil {
		tmp.Close()
		return errors.Trace(err)
	}
	if err := tmp.Close(); err != nil {
		return errors.Trace(err)
	}
	return errors.Trace(os.Rename(tmp.Name(), path))
}

// ContainsLine reports whether the file has a line exactly equal to line.
func ContainsLine(path, line string) (bool, error) {
	file, err := os.Open(path)
	if err != nil {
		return false, errors.Trace(err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		if strings.TrimSuffix(scanner.Text(), "\r") == line {
			return true, nil
		}
	}
	return false, errors.Trace(scanner.Err())
}

// ContainsText reports whether the file content contains text anywhere.
func ContainsText(path, text string) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return false, errors.Trace(err)
	}
	return bytes.Contains(data, []byte(text)), nil
}

// ReplaceLines rewrites in place every line matching pattern with replacement,
// taken literally. Other lines are kept byte for byte. It returns the number
// of replaced lines; the file is not rewritten when nothing matched.
func ReplaceLines(path string, pattern *regexp.Regexp, replacement string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, errors.Trace(err)
	}
	info, err := os.Stat(path)
	if err != nil {
		return 0, errors.Trace(err)
	}

	lines := strings.SplitAfter(string(data), "\n")
	replaced := 0
	for i, line := range lines {
		content := strings.TrimRight(line, "\r\n")
		if !pattern.MatchString(content) {
			continue
		}
		lines[i] = replacement + line[len(content):]
		replaced++
	}
	if replaced == 0 {
		return 0, nil
	}

	return replaced, WriteFileAtomic(path, []byte(strings.Join(lines, "")), info.Mode().Perm())
}
