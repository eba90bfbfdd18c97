package terminal

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/GriffinCanCode/shellcore/internal/shared/errs"
	"github.com/GriffinCanCode/shellcore/internal/shared/utils"
)

const defaultSSHPort = 22

// normalize validates the options and fills in the default port
func (o SSHOptions) normalize() (SSHOptions, error) {
	if err := utils.ValidateSSHArg(o.Host, "host"); err != nil {
		return o, err
	}
	if err := utils.ValidateSSHArg(o.Username, "username"); err != nil {
		return o, err
	}
	if strings.ContainsRune(o.Password, 0) {
		return o, fmt.Errorf("%w: password contains invalid characters", errs.ErrInvalidArgument)
	}
	if o.Port == 0 {
		o.Port = defaultSSHPort
	}
	return o, nil
}

func (o SSHOptions) target() string {
	return o.Username + "@" + o.Host
}

// sshArgs returns the ssh client arguments for o
func (o SSHOptions) sshArgs() []string {
	return []string{
		"-o", "StrictHostKeyChecking=no",
		"-p", strconv.Itoa(int(o.Port)),
		o.target(),
	}
}

// expectScript renders an expect program that answers the first password
// prompt and then hands the terminal to the user.
func expectScript(o SSHOptions) string {
	var b strings.Builder
	b.WriteString("#!/usr/bin/expect -f\n")
	b.WriteString("set timeout 30\n")
	fmt.Fprintf(&b, "set password %s\n", tclQuote(o.Password))
	b.WriteString("spawn -noecho ssh")
	for _, arg := range o.sshArgs() {
		b.WriteString(" ")
		b.WriteString(tclQuote(arg))
	}
	b.WriteString("\n")
	b.WriteString("expect {\n")
	b.WriteString("    -nocase \"password:\" {send -- \"$password\\r\"}\n")
	b.WriteString("    timeout {}\n")
	b.WriteString("    eof {exit 1}\n")
	b.WriteString("}\n")
	b.WriteString("interact\n")
	return b.String()
}

// tclQuote renders s as a double-quoted Tcl word with no substitutions
func tclQuote(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '\\', '"', '$', '[', ']':
			b.WriteByte('\\')
			b.WriteRune(r)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}

// writeExpectScript stores the script for session id, readable and
// executable by the owner only. A stale script from an earlier session with
// the same id is replaced.
func writeExpectScript(dir, id string, o SSHOptions) (string, error) {
	if dir == "" {
		dir = os.TempDir()
	}
	path := filepath.Join(dir, "ssh_expect_"+id+".exp")
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("%w: remove stale expect script: %v", errs.ErrIOFailure, err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o700)
	if err != nil {
		return "", fmt.Errorf("%w: create expect script: %v", errs.ErrIOFailure, err)
	}
	_, werr := f.WriteString(expectScript(o))
	cerr := f.Close()
	if werr == nil {
		werr = cerr
	}
	if werr == nil {
		// umask may have stripped the owner bits
		werr = os.Chmod(path, 0o700)
	}
	if werr != nil {
		os.Remove(path)
		return "", fmt.Errorf("%w: write expect script: %v", errs.ErrIOFailure, werr)
	}
	return path, nil
}
