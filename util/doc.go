// Package util holds small generic helpers shared by the search packages
// and the command line.
package util
