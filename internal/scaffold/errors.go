package scaffold

import (
	"fmt"
	"strings"

	"celtrix/internal/config"
	"celtrix/internal/prereq"
)

// PrerequisiteMissingError is returned when a required tool is absent or
// below its minimum version. Nothing has been written at that point.
type PrerequisiteMissingError = prereq.MissingError

// InvalidProjectNameError rejects names that are not safe directory names.
type InvalidProjectNameError struct {
	Name string
	Err  error
}

func (e *InvalidProjectNameError) Error() string { return e.Err.Error() }

func (e *InvalidProjectNameError) Unwrap() error { return e.Err }

// UnsupportedStackError reports an unknown stack id, or a language the stack
// does not offer.
type UnsupportedStackError struct {
	Stack     string
	Language  config.Language // set when the stack exists but not in this language
	Supported []string
}

func (e *UnsupportedStackError) Error() string {
	if e.Language != "" {
		return fmt.Sprintf("stack %q does not support %s (available: %s)", e.Stack, e.Language, strings.Join(e.Supported, ", "))
	}
	return fmt.Sprintf("unsupported stack %q (available: %s)", e.Stack, strings.Join(e.Supported, ", "))
}

// DirectoryExistsError is returned when the project directory is already present.
type DirectoryExistsError struct {
	Path string
}

func (e *DirectoryExistsError) Error() string {
	return fmt.Sprintf("directory %s already exists", e.Path)
}

// FilePatchError wraps an unexpected I/O failure while patching a generated file.
type FilePatchError struct {
	Modification string
	Patch        string
	Err          error
}

func (e *FilePatchError) Error() string {
	return fmt.Sprintf("file modification %s (%s) failed: %v", e.Modification, e.Patch, e.Err)
}

func (e *FilePatchError) Unwrap() error { return e.Err }
