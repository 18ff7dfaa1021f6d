// Package jobgraph turns a pipeline of shell commands into scheduler batch
// jobs.
//
// A Unit wraps one external command with its scheduler directives, the
// environment modules it needs and the units it depends on. Units are added
// to a Graph, which refuses dependency cycles, submits units in dependency
// order through a Scheduler and records the handles it gets back in a
// Registry. Completion is observed by polling the Scheduler.
package jobgraph
