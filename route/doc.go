// Package route classifies requests into cache sensitivity classes.
//
// It provides a pure, configuration-driven Classifier that maps a request's
// method, path, and body signature to a sensitivity class and a fetch
// strategy. Auth, session, and checkout routes always classify as
// never-cache, regardless of any other pattern that would also match.
package route
