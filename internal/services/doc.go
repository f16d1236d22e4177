// Package services defines the shared error taxonomy and context plumbing
// used by the engine packages. Sentinel markers classify failures (spawn vs
// process exit vs parse) so callers can branch with errors.Is without string
// matching.
package services
