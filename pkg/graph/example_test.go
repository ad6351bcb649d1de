package graph_test

import (
	"fmt"

	"github.com/matzehuels/labgraph/pkg/graph"
)

func ExampleBuild() {
	nodes := []graph.NodeRecord{
		{ID: "m1", Content: graph.Content{"name": "LiCoO2", "type": "material"}},
		{ID: "a1", Content: graph.Content{"name": "", "type": "action"}},
	}
	edges := []graph.EdgeRecord{
		{Source: "m1", Target: "a1"},
		{Source: "a1", Target: "x9"},
	}

	m, report := graph.Build(nodes, edges)
	for _, n := range m.Nodes() {
		fmt.Println(n.ID, n.Label, n.Color, n.Emphasized)
	}
	fmt.Println("Edges:", m.EdgeCount())
	for _, issue := range report.Issues {
		fmt.Println("Issue:", issue)
	}
	// Output:
	// m1 LiCoO2 rgb(31,119,180) true
	// a1 a1 rgb(255,187,120) false
	// Edges: 1
	// Issue: dropped_edge "x9": unknown target node
}
