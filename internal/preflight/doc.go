// Package preflight provides readiness checks for the directories, binaries,
// and remote APIs bookforge depends on.
//
// The "bookforge check" command runs RunAll and renders each Result. Checks
// that need network access are skipped when offline is requested.
package preflight
