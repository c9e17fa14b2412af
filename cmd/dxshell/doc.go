// Package main provides the entry point for dxshell.
//
// dxshell hosts a web application the way a native shell does: it keeps
// the device registered with the backend, holds the session token, tracks
// connectivity and drives the navigation screens, and routes bridge
// messages from the web content to native actions.
//
// Usage:
//
//	dxshell --base-url https://app.example.com run
//	dxshell register --output json
//	dxshell push <registration-id>
//	dxshell token show
//
// The run command also serves a local control API and Prometheus metrics
// on control.addr.
package main
