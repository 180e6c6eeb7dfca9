// Copyright 2023 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

/*
Package typeinfo holds the reflection used to turn statement arguments into
render variables. Structs are read through their "db" tags, maps with string
keys are read directly, and dotted names such as "user.address.city" are
resolved through any mix of the two.

Reflection is kept to this package as far as possible.
*/
package typeinfo
