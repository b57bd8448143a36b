/*
Package lfslink provides CLI tooling to share large binary objects across
git working copies through a deduplicated, content-addressed store.

Objects tracked by git-lfs are kept once per filesystem in a sharded store
and materialized in each working copy as hard links, so that any number of
clones of the same data cost the disk space of a single copy. The engine
guarantees that a hard-linked object is never mutated in place: every
replacement goes through a temporary name followed by an atomic rename.
*/
package lfslink
