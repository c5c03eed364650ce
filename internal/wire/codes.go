package wire

import "strconv"

// Code is a three-digit control-channel status code.
type Code int

// Status codes used by the protocol.
const (
	CodeServiceReady     Code = 220
	CodeGoodbye          Code = 221
	CodeTransferComplete Code = 226
	CodeLoggedIn         Code = 230
	CodeFileFollows      Code = 299 // carries "File <name> size <n> bytes"
	CodeNeedPassword     Code = 331
	CodeTooManyUsers     Code = 421
	CodeCantOpenData     Code = 425
	CodeTransferAborted  Code = 426
	CodeSyntaxError      Code = 500
	CodeBadArgument      Code = 501
	CodeBadSequence      Code = 503
	CodeLoginIncorrect   Code = 530
	CodeFileUnavailable  Code = 550
)

// Valid reports whether c renders as exactly three digits with a leading
// digit in 1..9.
func (c Code) Valid() bool {
	return c >= 100 && c <= 999
}

func (c Code) String() string {
	return strconv.Itoa(int(c))
}
