package shell

import "sync"

// PipeOutKind classifies how a Stage's stdout is wired to the next
// stage, if at all.
type PipeOutKind int

const (
	// PipeNone means the stage's stdout goes to the session's own
	// output (terminal or connection), not to another stage.
	PipeNone PipeOutKind = iota
	// PipeOrdinary is the plain '|' pipe: the next stage on the same
	// line reads this stage's stdout immediately.
	PipeOrdinary
	// PipeNumbered is the '|N' delayed pipe: the stage whose stdout
	// should read this output is N lines further down, tracked by the
	// session's pipe manager.
	PipeNumbered
)

// Stage is a single command in a pipeline, the Go analogue of the
// Command struct parsed out of one '|'-delimited segment of a shell
// line.
type Stage struct {
	Args []string

	PipeOut    PipeOutKind
	PipeNumber int // meaningful only when PipeOut == PipeNumbered

	MergeStderr bool // '!' variant: stderr joins stdout into the pipe

	RedirectFile string // set by trailing '> file'; empty if absent

	// UserPipeOutTo is the destination session id for a trailing
	// '>N' user-pipe token; 0 means no user-pipe output.
	UserPipeOutTo int
	// UserPipeInFrom is the source session id for a leading '<N'
	// user-pipe token; 0 means no user-pipe input.
	UserPipeInFrom int
}

// HasPipeOut reports whether this stage's stdout feeds another stage
// (ordinary or numbered), as opposed to going to the session's own
// output.
func (s Stage) HasPipeOut() bool {
	return s.PipeOut != PipeNone
}

// Session holds one shell client's mutable state: its numeric id, its
// environment, and its table of in-flight numbered pipes. It does not
// own network I/O; callers wire a Session's stdin/stdout independently.
type Session struct {
	mu sync.Mutex

	id  int
	env map[string]string

	pipes *PipeManager

	name string // chat nickname set by the 'name' builtin; defaults to "(no name)"
}

// NewSession returns a Session with the default environment used by
// every variant of this shell: PATH set to "bin:." and nothing else.
func NewSession(id int) *Session {
	return &Session{
		id:    id,
		env:   map[string]string{"PATH": "bin:."},
		pipes: NewPipeManager(),
		name:  "(no name)",
	}
}

// ID returns the session's allocated numeric id.
func (s *Session) ID() int { return s.id }

// Getenv returns the value of the named environment variable, or "" if
// unset.
func (s *Session) Getenv(key string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.env[key]
}

// Setenv sets the named environment variable for this session.
func (s *Session) Setenv(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.env[key] = value
}

// Environ returns a copy of the session's environment in "KEY=VALUE"
// form, suitable for exec.Cmd.Env.
func (s *Session) Environ() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.env))
	for k, v := range s.env {
		out = append(out, k+"="+v)
	}
	return out
}

// EnvMap returns a snapshot copy of the session's environment map.
func (s *Session) EnvMap() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.env))
	for k, v := range s.env {
		out[k] = v
	}
	return out
}

// Name returns the session's chat nickname.
func (s *Session) Name() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.name
}

// SetName sets the session's chat nickname, used by the 'name' builtin.
func (s *Session) SetName(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.name = name
}

// Pipes returns the session's numbered-pipe manager.
func (s *Session) Pipes() *PipeManager { return s.pipes }
