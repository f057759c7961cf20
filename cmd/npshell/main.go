// Command npshell is a single local interactive session: one user, one
// terminal, no chat and no inter-user pipes. exit, setenv, and printenv
// work as usual; who/tell/yell/name still run as builtins but act on a
// directory with no other users, so who prints nothing, tell reports
// that the target user does not exist, and yell and name notify nobody.
package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/infodancer/npcore/internal/shell"
)

// localDirectory implements shell.Directory for a session with no
// peers: who prints nothing, tell reports that the target does not
// exist, and yell/name reach nobody.
type localDirectory struct{}

func (localDirectory) Who(selfID int) []string       { return nil }
func (localDirectory) Send(id int, line string) error { return shell.ErrNoSuchUser }
func (localDirectory) Broadcast(line string)          {}
func (localDirectory) NameTaken(name string) bool     { return false }
func (localDirectory) NameOf(id int) (string, bool)   { return "", false }

func main() {
	sess := shell.NewSession(1)
	pipes := shell.NewMemUserPipeRegistry()
	dir := localDirectory{}

	scanner := bufio.NewScanner(os.Stdin)
	fmt.Fprint(os.Stdout, "% ")
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		result := shell.RunLine(sess, dir, pipes, "local", os.Stdin, os.Stdout, line)
		if result.Terminate {
			return
		}
		fmt.Fprint(os.Stdout, "% ")
	}
}
