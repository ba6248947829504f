// Command cinespin resolves a free-form mood into one streamable title.
//
// `cinespin resolve` runs the pipeline in-process, `cinespin serve` runs the
// HTTP API under a supervisor, and the cache, config, trending and health
// subcommands cover day-to-day operation.
package main
