// Package membersdk is a typed client for the memberd API. The server's
// handlers share its request/response types, so the wire shapes live in one
// place, and the e2e suite drives a running instance through it.
package membersdk
