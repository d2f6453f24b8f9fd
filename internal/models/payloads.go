package models

// These structs define the JSON payloads exchanged with the reclaimer
// function and the GC trigger workflow.

// ReclaimRequest is the input for the reclaimer function.
type ReclaimRequest struct {
	Reason      string `json:"reason"`
	RequestedAt int64  `json:"requestedAt,omitempty"`
}

// ReclaimReport is the outcome of one reachability collection pass.
type ReclaimReport struct {
	Status          string `json:"status"`
	ScannedProjects int    `json:"scannedProjects"`
	ReachableBlobs  int    `json:"reachableBlobs"`
	RemovedBlobs    int    `json:"removedBlobs"`
}
