package pbf

// Node is a single point entity with a coordinate and tags.
//
// Coordinates are WGS-84 decimal degrees, reconstructed from the block's
// granularity and lat/lon offsets during decoding.
type Node struct {
	ID   int64
	Lat  float64
	Lon  float64
	Tags map[string]string
}

// Way is an ordered sequence of node references with tags.
//
// Refs holds node identifiers in shape order; the order is semantically
// significant (it defines the line or ring). References are resolved by
// identifier, never by position in the file.
type Way struct {
	ID   int64
	Refs []int64
	Tags map[string]string
}

// Relation groups members (nodes, ways, other relations) under a role.
//
// Members are carried through decoding untouched; this package does not
// resolve relation geometry.
type Relation struct {
	ID      int64
	Members []Member
	Tags    map[string]string
}

// Member is a single relation member reference.
type Member struct {
	Type MemberType
	Ref  int64
	Role string
}

// MemberType identifies what kind of entity a relation member references.
type MemberType int

// Member types per the OSMPBF Relation.MemberType enum.
const (
	MemberNode MemberType = iota
	MemberWay
	MemberRelation
)

// String returns the lowercase entity kind name.
func (t MemberType) String() string {
	switch t {
	case MemberNode:
		return "node"
	case MemberWay:
		return "way"
	case MemberRelation:
		return "relation"
	default:
		return "unknown"
	}
}

// Block holds the decoded entities of a single OSMData blob.
//
// Blocks are independent once decoded: entity identifiers are not
// guaranteed ordered or co-located across blocks, and exactly one block's
// entities are materialized at a time by the Reader.
type Block struct {
	// Granularity is the coordinate scale factor in nanodegrees.
	// Default 100 (1e-7 degree resolution).
	Granularity int64
	// LatOffset and LonOffset shift all coordinates in the block,
	// in nanodegrees.
	LatOffset int64
	LonOffset int64

	Nodes     []Node
	Ways      []Way
	Relations []Relation
}
