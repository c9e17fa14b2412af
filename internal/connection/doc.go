// Package connection is the network client for the dxshell backend.
//
// PostJSON is the only way the controller talks to the server: every
// request carries a JSON body and every answer must be a JSON object.
// Anything else (transport failure, non-object body, invalid JSON) is
// folded into a single *NetworkError so callers have one failure kind to
// classify. Probe answers reachability for the connectivity prober.
package connection
