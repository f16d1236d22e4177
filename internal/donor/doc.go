// Package donor matches external donor files against library episodes and
// merges selected tracks with transactional rollback on cancellation.
package donor
