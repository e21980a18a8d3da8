package maincmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/mna/mainer"
)

const binName = "rplus"

var (
	shortUsage = fmt.Sprintf(`
usage: %s [<option>...] [<command>] <in.rp> [<out.rpx>]
Run '%[1]s --help' for details.
`, binName)

	longUsage = fmt.Sprintf(`usage: %s [<option>...] [<command>] <in.rp> [<out.rpx>]
       %[1]s -i|interactive
       %[1]s -h|--help
       %[1]s -v|--version

Compiler and all-in-one tool for the R+ programming language.

The <command> can be one of:
       compile                   Compile <in.rp>, writing the textual
                                 .rpx bytecode rendering to <out.rpx>
                                 (default "output.rpx"). This is also
                                 the default when no command is given.
       interactive                Read lines from stdin, compiling each
                                 one independently, until 'exit' or
                                 'quit'.
       tokenize                  Debug command printing the token
                                 stream for <in.rp> instead of compiling
                                 it.

Valid flag options are:
       -h --help                 Show this help and exit.
       -v --version              Print version and exit.
       -c                        Alias for the compile command.
       -i --interactive          Alias for the interactive command.

More information on the %[1]s repository:
       https://github.com/oscarlin/rplus
`, binName)
)

type Cmd struct {
	BuildVersion string
	BuildDate    string

	Help            bool `flag:"h,help"`
	Version         bool `flag:"v,version"`
	CompileFlag     bool `flag:"c"`
	InteractiveFlag bool `flag:"i,interactive"`

	args  []string
	flags map[string]bool
	cmdFn func(context.Context, mainer.Stdio, []string) error
}

func (c *Cmd) SetArgs(args []string) {
	c.args = args
}

func (c *Cmd) SetFlags(flags map[string]bool) {
	c.flags = flags
}

// Validate resolves which command runs, applying §6's three equivalent
// spellings: an explicit "compile"/"interactive"/"tokenize" word, the -c/-i
// flag aliases, or (when nothing else matches and a file argument is given)
// the bare-file compile shorthand.
func (c *Cmd) Validate() error {
	if c.Help || c.Version {
		return nil
	}

	commands := buildCmds(c)

	switch {
	case c.InteractiveFlag:
		c.cmdFn = commands["interactive"]
		return nil
	case c.CompileFlag:
		if len(c.args) == 0 {
			return errors.New("compile: a source file must be provided")
		}
		c.cmdFn = commands["compile"]
		return nil
	}

	if len(c.args) == 0 {
		return errors.New("no command or source file specified")
	}

	if cmdFn, ok := commands[c.args[0]]; ok {
		c.cmdFn = cmdFn
		c.args = c.args[1:]
	} else {
		// bare-file shorthand: "rplus in.rp [out.rpx]" compiles directly
		c.cmdFn = commands["compile"]
	}

	return nil
}

func printError(stdio mainer.Stdio, err error) error {
	if err != nil {
		fmt.Fprintf(stdio.Stderr, "%s\n", err)
	}
	return err
}

func (c *Cmd) Main(args []string, stdio mainer.Stdio) mainer.ExitCode {
	p := mainer.Parser{
		EnvVars:   false,
		EnvPrefix: binName + "_",
	}
	if err := p.Parse(args, c); err != nil {
		fmt.Fprintf(stdio.Stderr, "invalid arguments: %s\n%s", err, shortUsage)
		return mainer.InvalidArgs
	}

	switch {
	case c.Help:
		fmt.Fprint(stdio.Stdout, longUsage)
		return mainer.Success

	case c.Version:
		fmt.Fprintf(stdio.Stdout, "%s %s %s\n", binName, c.BuildVersion, c.BuildDate)
		return mainer.Success
	}

	ctx := mainer.CancelOnSignal(context.Background(), os.Interrupt)
	if err := printError(stdio, c.cmdFn(ctx, stdio, c.args)); err != nil {
		return mainer.Failure
	}
	return mainer.Success
}

// valid commands are those that take a mainer.Stdio and a slice of strings as
// input, and return an error as output.
func buildCmds(v interface{}) map[string]func(context.Context, mainer.Stdio, []string) error {
	cmds := make(map[string]func(context.Context, mainer.Stdio, []string) error)

	vv := reflect.ValueOf(v)
	vt := vv.Type()
	for i := 0; i < vt.NumMethod(); i++ {
		m := vt.Method(i)
		mt := m.Type

		// must take 4 parameters (including receiver) and return 1
		if mt.NumIn() != 4 || mt.NumOut() != 1 {
			continue
		}

		if rt := mt.Out(0); rt.Kind() != reflect.Interface || rt.Name() != "error" {
			continue
		}
		if p0 := mt.In(0); p0.Kind() != reflect.Ptr || p0.Elem().Name() != "Cmd" {
			continue
		}
		if p1 := mt.In(1); p1.Kind() != reflect.Interface || p1.Name() != "Context" {
			continue
		}
		if p2 := mt.In(2); p2.Kind() != reflect.Struct || p2.Name() != "Stdio" {
			continue
		}
		if p3 := mt.In(3); p3.Kind() != reflect.Slice || p3.Elem().Name() != "string" {
			continue
		}
		cmds[strings.ToLower(m.Name)] = vv.Method(i).Interface().(func(context.Context, mainer.Stdio, []string) error)
	}
	return cmds
}
