// Package platform provides the host-side collaborators of the controller
// when it runs as a desktop process: device identity, a polling
// connectivity source, the system URL opener and console stand-ins for the
// navigation surface, the web surface and the confirmation prompt.
package platform
