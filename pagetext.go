// Package pagetext turns an arbitrary URL into clean, bounded, human-readable
// text representing the content of that page.
//
// Two strategies are available: a static fetch that parses the raw HTTP
// response, and a dynamic fetch that renders the page in a shared headless
// browser first. A policy decides per request which one runs, with a static
// fallback when the dynamic attempt fails.
//
// This package contains domain types, interfaces and the dependency-free
// extraction logic following Ben Johnson's Standard Package Layout.
// Implementations live in subdirectories named after their primary
// dependency (e.g., rod/, http/, goquery/, sqlite/).
package pagetext
