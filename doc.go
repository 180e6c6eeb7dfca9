/*
Package dynsql parses and renders dynamic SQL templates.

A template is plain SQL extended with a small set of constructs that are
resolved when the statement is rendered with a set of variables:

	:name, #name#       bind the variable as a query argument
	#{expr}             bind the value of an expression
	$name$, ${expr}     write the value into the SQL text
	?                   bind the next positional argument
	{? ... }            keep the clause only if every variable it binds is set
	{? ... ; nullable:true}
	                    as above, but nil values count as set
	@if(cond) ... @elseif(cond) ... @else ... @endif
	                    keep the first branch whose condition holds
	@include(name)      render a named fragment in place
	@name(content)      render content with a registered tag handler
	```text```          write text verbatim, without interpretation

Variables are given as maps with string keys or as structs, whose fields are
named by their `db` tags. Dotted names such as :user.address.city reach
through both.

# Basics

Given a tagged struct:

	type Person struct {
		Name string `db:"name"`
		ID   int    `db:"id"`
		Team string `db:"team"`
	}

the template

	SELECT name, id FROM person
	WHERE 1 = 1
	{? AND team = :team}
	{? AND id IN (:ids)}

rendered with Person{Team: "engineering"} becomes

	SELECT name, id FROM person
	WHERE 1 = 1
	AND team = ?

with the single argument "engineering". Slices expand to one argument per
element, so with M{"ids": []int{1, 2}} the last clause renders as
AND id IN (?, ?).

# Parse levels

At [LevelBase] only the template constructs are recognised and everything
else is kept as text. At [LevelMore], the default, the structure of SELECT,
INSERT, UPDATE and DELETE statements is recognised too, which gives the
parsed tree its select lists, table names, WHERE bodies and ORDER BY items.
[WithFallback] parses a statement again at [LevelBase] if it cannot be parsed
at [LevelMore].

# Running statements

[Prepare] parses a template into a [Statement]. [DB.Query] and [TX.Query]
render it and run the result, caching one driver prepared statement per
distinct rendered SQL string.
*/
package dynsql
