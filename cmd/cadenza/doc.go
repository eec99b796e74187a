// Command cadenza is the operator CLI for the cadenza daemon: it starts
// and inspects matching jobs, reviews the conflict queue, validates
// ownership chains, and manages configuration.
package main
