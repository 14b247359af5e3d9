// File: internal/concurrency/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Scoped synchronization primitives shared by the dispatcher: a counting
// mutex and a shared/exclusive lock, each with blocking and non-blocking
// acquire variants. Closures passed to Do, Shared, Exclusive and the Try
// variants always run with the lock released afterwards, even when they
// panic.
package concurrency
