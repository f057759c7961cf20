package shell

import (
	"fmt"
	"io"
	"strings"
)

// Directory is the subset of Registry behavior a builtin needs: who/
// tell/yell/name all act on the session directory, not just on the
// calling session. A caller may pass nil: exit then broadcasts nothing,
// who prints nothing, and tell/yell/name print their usage line.
type Directory interface {
	Who(selfID int) []string
	Send(id int, line string) error
	Broadcast(line string)
	NameTaken(name string) bool
	NameOf(id int) (string, bool)
}

// Outcome reports what a builtin did, so the caller (the per-line
// driver) knows whether to keep reading commands from this session.
type Outcome struct {
	Terminate bool
}

// Dispatch recognizes and runs a whole-line builtin. handled is false if
// verb is not one of the seven recognized names, in which case the
// caller should fall through to the stage executor instead.
func Dispatch(w io.Writer, dir Directory, sess *Session, addr string, verb string, args []string, rawLine string) (handled bool, outcome Outcome, err error) {
	switch verb {
	case "exit":
		if dir != nil {
			dir.Broadcast(fmt.Sprintf("*** User '%s' left. ***\n", sess.Name()))
		}
		return true, Outcome{Terminate: true}, nil

	case "setenv":
		if len(args) != 2 {
			fmt.Fprint(w, "Usage: setenv [var] [value]\n")
			return true, Outcome{}, nil
		}
		sess.Setenv(args[0], args[1])
		return true, Outcome{}, nil

	case "printenv":
		if len(args) != 1 {
			return true, Outcome{}, nil
		}
		if v := sess.Getenv(args[0]); v != "" {
			fmt.Fprintf(w, "%s\n", v)
		}
		return true, Outcome{}, nil

	case "who":
		if dir == nil {
			return true, Outcome{}, nil
		}
		for _, line := range dir.Who(sess.ID()) {
			fmt.Fprintf(w, "%s\n", line)
		}
		return true, Outcome{}, nil

	case "tell":
		if dir == nil || len(args) < 2 {
			fmt.Fprint(w, "Usage: tell [ID] [message]\n")
			return true, Outcome{}, nil
		}
		id, msg, ok := parseIDAndRest(args)
		if !ok {
			fmt.Fprint(w, "Usage: tell [ID] [message]\n")
			return true, Outcome{}, nil
		}
		line := fmt.Sprintf("*** %s told you ***: %s\n", sess.Name(), msg)
		if sendErr := dir.Send(id, line); sendErr != nil {
			fmt.Fprintf(w, "*** Error: user #%d does not exist yet. ***\n", id)
		}
		return true, Outcome{}, nil

	case "yell":
		if dir == nil || len(args) < 1 {
			fmt.Fprint(w, "Usage: yell [message]\n")
			return true, Outcome{}, nil
		}
		msg := strings.Join(args, " ")
		dir.Broadcast(fmt.Sprintf("*** %s yelled ***: %s\n", sess.Name(), msg))
		return true, Outcome{}, nil

	case "name":
		if dir == nil || len(args) != 1 {
			fmt.Fprint(w, "Usage: name [name]\n")
			return true, Outcome{}, nil
		}
		newName := args[0]
		if dir.NameTaken(newName) {
			fmt.Fprintf(w, "*** User '%s' already exists. ***\n", newName)
			return true, Outcome{}, nil
		}
		sess.SetName(newName)
		dir.Broadcast(fmt.Sprintf("*** User from %s is named '%s'. ***\n", addr, newName))
		return true, Outcome{}, nil
	}

	return false, Outcome{}, nil
}

// parseIDAndRest splits "tell"'s argument list into the numeric target
// id and the remaining message text.
func parseIDAndRest(args []string) (id int, msg string, ok bool) {
	if len(args) < 2 {
		return 0, "", false
	}
	n, err := fmt.Sscanf(args[0], "%d", &id)
	if err != nil || n != 1 {
		return 0, "", false
	}
	return id, strings.Join(args[1:], " "), true
}

// IsBuiltin reports whether verb names one of the seven builtins, used
// by the line driver to decide whether to bypass the stage executor
// entirely, per the data-flow note that builtins shortcut the executor.
func IsBuiltin(verb string) bool {
	switch verb {
	case "exit", "setenv", "printenv", "who", "tell", "yell", "name":
		return true
	}
	return false
}
