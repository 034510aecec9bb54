package scanner

// Queries capture module specifiers per grammar. Capture names decide laziness:
// @import.spec and @reexport.spec are eager, @dynamic.spec is lazy. Static
// forms also capture the whole statement as @import.stmt or @reexport.stmt.
var Queries = map[string]string{
	"javascript": `
		(import_statement source: (string (string_fragment) @import.spec)) @import.stmt
		(export_statement source: (string (string_fragment) @reexport.spec)) @reexport.stmt
		(call_expression
			function: (import)
			arguments: (arguments . (string (string_fragment) @dynamic.spec)))
	`,
	"typescript": `
		(import_statement source: (string (string_fragment) @import.spec)) @import.stmt
		(export_statement source: (string (string_fragment) @reexport.spec)) @reexport.stmt
		(call_expression
			function: (import)
			arguments: (arguments . (string (string_fragment) @dynamic.spec)))
	`,
}

// captureLazy maps a capture name to the laziness of the import it marks.
var captureLazy = map[string]bool{
	"import.spec":   false,
	"reexport.spec": false,
	"dynamic.spec":  true,
}
