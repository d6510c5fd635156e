// Package platform maps a host to the single release artifact built for it.
//
// A [Matrix] is an immutable table of platform → architecture → [Descriptor],
// where each platform may carry a [Wildcard] architecture used when no exact
// entry exists. [Matrix.Resolve] is a pure lookup over that table: unknown
// platforms and unmatched architectures are errors, never guesses.
//
// At run time a [Resolver] turns the resolved descriptor into the path of an
// installed binary, root/<slug>/<binary>. Host identifiers come from a
// [Detector], the only place that looks at the running environment.
//
// example usage
//
//	matrix := platform.DefaultMatrix()
//	path, err := platform.NewResolver(matrix, "./bin").
//		LocateHost(ctx, platform.RuntimeDetector{})
//	if err != nil {
//		return fmt.Errorf("no binary for this host: %w", err)
//	}
package platform
