// Package main provides the entry point for the reconscan CLI.
//
// reconscan runs a set of reconnaissance workers over root values such as
// domains, IP addresses and websites. Every value a worker discovers is fed
// back to the workers that accept its type until nothing new turns up.
//
// Usage:
//
//	reconscan run example.com
//	reconscan run --seeds seeds.yaml --workers dns/lookup,net/port_scan
//	reconscan worker dns/lookup example.com
//
// See --help for all available options.
package main

import "os"

// main is the entry point for reconscan.
func main() {
	os.Exit(Execute())
}
