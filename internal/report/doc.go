// Package report renders scan results for the terminal.
package report
