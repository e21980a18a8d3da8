package token

// Value combines a scanned token's kind with its decoded literal payload, if
// any, and its source position. Only one of Int, Float, Str is meaningful,
// depending on Tok.
type Value struct {
	Tok Token
	Pos Pos
	Raw string // the literal source text of the token

	Int   int64   // decoded value for NUMBER
	Float float64 // decoded value for FLOAT
	Str   string  // decoded value for STRING and CHAR (single byte, as a string)
}
