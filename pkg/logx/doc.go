// Package logx is a thin structured-logging layer over zerolog.
//
// It exposes a small Logger value type plus a Service that can swap
// sinks and levels at runtime when the config file changes.
package logx
