package design

// Reserved attribute keys written on the ports synthesized for a cluster
// node. They record the boundary a port stands in for so the cluster can
// be exploded without loss.
const (
	AttrOriginalPieceID       = "semio.originalPieceId"
	AttrOriginalPortID        = "semio.originalPortId"
	AttrOriginalDesignPieceID = "semio.originalDesignPieceId"
	AttrExternalPieceID       = "semio.externalPieceId"
	AttrExternalPortID        = "semio.externalPortId"
)
