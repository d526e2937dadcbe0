package render

// Theme holds colors for graph rendering.
type Theme struct {
	Background string
	NodeFill   string
	NodeBorder string
	TextColor  string

	// Edge colors by callee kind.
	EdgeInternal string // call into a reconstructed function
	EdgeSyscall  string // call into a mapped runtime syscall
	EdgeUnknown  string // unmapped syscall or call from outside every function

	// Branch colors in CFGs.
	BranchTrue  string
	BranchFalse string

	// Node accents.
	EntryBorder  string // entry points and entry blocks
	SyscallFill  string // syscall nodes, terminal blocks
	ExternalText string // unknown targets

	// Cluster styling.
	ClusterBorder string // subgraph cluster border
	ClusterLabel  string // subgraph cluster label text
}

// NASA is the NASA/Bauhaus theme: geometric, monochrome, sparse color.
var NASA = Theme{
	Background: "#F5F5F5",
	NodeFill:   "white",
	NodeBorder: "#1A1A1A",
	TextColor:  "#1A1A1A",

	EdgeInternal: "#424242", // dark gray
	EdgeSyscall:  "#00695C", // teal
	EdgeUnknown:  "#FC3D21", // NASA red

	BranchTrue:  "#0B3D91", // NASA blue
	BranchFalse: "#FC3D21",

	EntryBorder:  "#0B3D91",
	SyscallFill:  "#ECEFF1", // blue-gray 50
	ExternalText: "#9E9E9E",

	ClusterBorder: "#BDBDBD",
	ClusterLabel:  "#757575",
}
