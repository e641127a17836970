// Package schema loads member message type declarations from CUE.
//
// Declarations live under a top-level message struct:
//
//	message: Car: {
//		brand:  string @key()
//		models: [...string]
//		engine: {hp: int}
//		owner: [...{name: string @key(), since: int}]
//	}
//
// A Registry answers two questions for the member layer: which fields a
// message of a given type may carry (everything else is stripped and
// reported before storing), and whether a message type name is declared.
// Float kinds are rejected at compile time; member messages carry no floats.
package schema
