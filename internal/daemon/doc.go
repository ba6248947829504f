// Package daemon runs the long-lived cinespin service.
//
// A suture supervisor owns two services: the HTTP API and a periodic sweeper
// that evicts expired cache entries. A flock-based lock file prevents two
// daemons sharing a log directory from running at once. Request handling
// lives in httpapi; this package only handles startup, supervision and
// shutdown.
package daemon
