package bashrc

import "fmt"

// LoginBlock is the shell snippet installed for the node operator: an alias
// for the console and an auto-launch on interactive logins outside tmux.
func LoginBlock(consoleName, consoleCommand string) string {
	return fmt.Sprintf(`alias %[1]s='%[2]s'
if [ -n "$PS1" ] && [ -z "$TMUX" ] && [ -t 0 ] && shopt -q login_shell; then
  tmux attach-session -t lynx-console 2>/dev/null || %[2]s
fi`, consoleName, consoleCommand)
}
