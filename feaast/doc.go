/*
Package feaast provides typed, read-only views over the concrete syntax
trees produced by package feasyn.

A view is a lightweight handle wrapping a green node of a known kind.
Casting a node to a view is total: every As* function returns a
present/absent pair and never fails ambiguously. Accessors skip trivia and
malformed (ERROR) children transparently, and perform no interpretation
beyond structural navigation — semantic checking is the validator's job.

Views are copyable values; code must not rely on view identity.

# Status

Work in progress.

# License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © Norbert Pillmayer <norbert@pillmayer.com>
*/
package feaast
