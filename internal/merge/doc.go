// Package merge reassembles extracted and transcoded streams into a single
// output container with a fixed, order-sensitive input layout.
package merge
