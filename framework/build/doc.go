// Package build plans and runs the extension phases of a container build.
//
//	plan, err := build.NewPlan(exts...)      // checks every callback table
//	if err != nil { ... }                     // *spi.ConfigError values, joined
//	res, err := build.NewRunner(
//	    build.WithLogger(logger),
//	    build.WithConflictPolicy(build.ConflictLastWins),
//	).Run(plan)
//
// # Failure rules
//
// Before Validation, a callback that returns an error or panics stops the
// build at once. Error messages recorded in a phase fail the build when that
// phase ends. Validation runs every callback; returned or panicked failures
// there become error messages, and any error message fails the build.
//
// A failed build returns a *BuildError and no Result.
package build
