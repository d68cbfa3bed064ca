package domain

type NodeRole string

const (
	RoleDepot       NodeRole = "depot"
	RoleDestination NodeRole = "destination"
)

// Node is an identified physical location taking part in one planning run.
// Exactly one node per run carries RoleDepot.
type Node struct {
	ID          string
	Coordinates Coordinates
	Role        NodeRole
}

func NewDepot(id string, c Coordinates) Node {
	return Node{ID: id, Coordinates: c, Role: RoleDepot}
}

func NewDestination(id string, c Coordinates) Node {
	return Node{ID: id, Coordinates: c, Role: RoleDestination}
}
