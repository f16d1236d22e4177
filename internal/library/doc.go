// Package library persists episodes and their merged tracks in SQLite.
package library
