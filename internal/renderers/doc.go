// Package renderers provides implementations of the Renderer interface.
// Each renderer converts the captured HTML of a document into one output
// format.
//
// Renderers are collected in a Registry at startup.
package renderers
