package main

import (
	"os"

	"github.com/mna/mainer"

	"github.com/oscarlin/rplus/internal/maincmd"
)

var (
	// placeholder values, replaced on build via -ldflags
	version   = "{v}" // must be N.N[.N]
	buildDate = "{d}" // must be YYYY-mm-DD
)

func main() {
	c := maincmd.Cmd{BuildVersion: version, BuildDate: buildDate}
	os.Exit(int(c.Main(os.Args, mainer.CurrentStdio())))
}
