// Package billing stores team subscription state in postgres and exposes it
// to the entitlement guard. Payment processing itself lives with the external
// billing vendor; this package only tracks which plan a team is on and
// whether that subscription is in good standing.
package billing
