/*
Package compiler drives the pipeline of a source file.

	Program Text ->
		parse ->
	Abstract Syntax Tree (ast) ->
		analyze ->
	Annotated Tree (ast, scope) ->
		compile (interp for #expr) ->
	Module (ir) ->
		link ->
	Image

	Annotated Tree ->
		serial ->
	Library
*/
package compiler
