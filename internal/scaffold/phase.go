package scaffold

// Phase is the orchestrator's position in a run.
type Phase int

const (
	Uninitialized Phase = iota
	Validating
	DirectoryCreated
	CommandsRunning
	FilesPatched
	EnvGenerated
	Done
	Failed
)

var phaseNames = [...]string{
	Uninitialized:    "uninitialized",
	Validating:       "validating",
	DirectoryCreated: "directory-created",
	CommandsRunning:  "commands-running",
	FilesPatched:     "files-patched",
	EnvGenerated:     "env-generated",
	Done:             "done",
	Failed:           "failed",
}

func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return "unknown"
	}
	return phaseNames[p]
}

// Terminal reports whether no further transition can happen.
func (p Phase) Terminal() bool {
	return p == Done || p == Failed
}
