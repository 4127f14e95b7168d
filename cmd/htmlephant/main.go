// Package main provides the entry point for the HTMLephant CLI.
package main

// main is the entry point of the application.
func main() {
	Execute()
}
