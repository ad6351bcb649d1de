// Package render groups the sinks that draw labgraph view models.
//
// Rendering is split by view model:
//
//   - [nodelink] draws a [graph.Model] as Graphviz DOT or SVG.
//   - [tablesink] draws a [table.View] as a terminal table with a status line.
//
// Neither sink fetches data or mutates the model it is given; both are safe
// to call from the HTTP server and the CLI.
//
// [graph.Model]: github.com/matzehuels/labgraph/pkg/graph.Model
// [table.View]: github.com/matzehuels/labgraph/pkg/table.View
package render
