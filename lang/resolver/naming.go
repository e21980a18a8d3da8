package resolver

import "fmt"

// lambdaNamer hands out stable, readable synthetic names for anonymous
// function literals, which still need a name for the module's function
// table and for asm.go's textual rendering.
type lambdaNamer struct {
	n int
}

func (ln *lambdaNamer) next() string {
	ln.n++
	return fmt.Sprintf("lambda#%d", ln.n)
}
