// Package planner turns a free-form request into an initial job.
//
// A request is matched against a small library of flow templates by
// keyword. Every matched flow contributes its steps to the job, in library
// order; when nothing matches the default flow is used. Templates can be
// extended or replaced from HCL files, see LoadTemplates.
package planner
