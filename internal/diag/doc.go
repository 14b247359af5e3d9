// File: internal/diag/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Diagnostics plumbing wired around the dispatcher and acceptor by the
// host: a serialized console/file log sink, an interval timer and a
// random alphanumeric identifier generator.
package diag
