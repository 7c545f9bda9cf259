// Package output renders deployment listings for the terminal.
//
// Four formats are supported: name (one deployment name per line), wide (a
// kubectl style table), json and yaml. Results are grouped per namespace so
// that an empty namespace can be reported without hiding the others.
package output
