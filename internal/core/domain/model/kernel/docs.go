// Package kernel provides the value objects shared by the tracker domain:
//   - Location: a validated longitude/latitude pair with geodesic distance
//     and bounding-box helpers for spatial prefiltering
//   - AgentID: the externally assigned identity of a tracked agent
//   - UUID: server-side identifiers such as live channel handles
//
// Values are immutable and safe for concurrent use. Zero values fail
// validation; use the constructors.
package kernel
